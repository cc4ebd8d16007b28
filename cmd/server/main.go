package main

import (
	"net/http"

	"github.com/clawplet/go-clawplet/env"
	"github.com/clawplet/go-clawplet/server"
	"github.com/clawplet/go-clawplet/service/logger"
	sentryutil "github.com/clawplet/go-clawplet/service/sentry"
)

func main() {
	defer sentryutil.RecoverAndRaise(nil)

	server.Init()
	port := env.GetString("PORT")
	logger.For(nil).Infof("Listening on :%s", port)
	http.ListenAndServe(":"+port, nil)
}
