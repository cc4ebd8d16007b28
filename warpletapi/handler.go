package warpletapi

import (
	"github.com/clawplet/go-clawplet/service/farcaster"
	"github.com/clawplet/go-clawplet/service/mint"
	"github.com/clawplet/go-clawplet/service/persist/postgres"
	"github.com/clawplet/go-clawplet/service/warplet"
	"github.com/clawplet/go-clawplet/util"
	"github.com/gin-gonic/gin"
)

const (
	WarpletsGroupPath = "/warplets"

	GetWarpletPath  = WarpletsGroupPath + "/metadata/:fid"
	TransformPath   = WarpletsGroupPath + "/transform"
	GetStatusPath   = WarpletsGroupPath + "/status"
	GetMediaPath    = WarpletsGroupPath + "/media/:fid"
	GetUserPath     = "/users/:fid"
	SignMintPath    = "/mint/sign"
	UploadImagePath = "/ipfs/upload"
)

// HandlersInit registers all route handlers on the router
func HandlersInit(router *gin.Engine, repos *postgres.Repositories, resolver *warplet.Resolver, tp *transformProcessor, signer *mint.Signer, statusChecker *mint.StatusChecker, farcasterClient *farcaster.Client) *gin.Engine {
	router.GET("/alive", util.HealthCheckHandler())

	router.GET(GetWarpletPath, getWarplet(resolver))
	router.POST(TransformPath, transformWarplet(tp))
	router.GET(GetStatusPath, getStatus(repos.WarpletRepository, statusChecker))
	router.GET(GetMediaPath, getWarpletMedia(repos.WarpletRepository))
	router.GET(GetUserPath, getUser(farcasterClient))

	router.POST(SignMintPath, signMint(signer))
	router.POST(UploadImagePath, uploadImage(tp.pinner))

	return router
}
