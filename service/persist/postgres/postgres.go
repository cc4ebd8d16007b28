package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/clawplet/go-clawplet/env"
	"github.com/clawplet/go-clawplet/service/logger"
	_ "github.com/lib/pq"
)

type connectionParams struct {
	user     string
	password string
	dbname   string
	host     string
	port     int
}

func (c connectionParams) dsn() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=disable", c.host, c.port, c.user, c.password, c.dbname)
}

func newConnectionParamsFromEnv() connectionParams {
	return connectionParams{
		user:     env.GetString("POSTGRES_USER"),
		password: env.GetString("POSTGRES_PASSWORD"),
		dbname:   env.GetString("POSTGRES_DB"),
		host:     env.GetString("POSTGRES_HOST"),
		port:     env.GetInt("POSTGRES_PORT"),
	}
}

// ConnectionOption overrides one of the environment-derived connection parameters
type ConnectionOption func(params *connectionParams)

func WithHost(host string) ConnectionOption {
	return func(params *connectionParams) {
		params.host = host
	}
}

func WithPort(port int) ConnectionOption {
	return func(params *connectionParams) {
		params.port = port
	}
}

func WithUser(user string) ConnectionOption {
	return func(params *connectionParams) {
		params.user = user
	}
}

func WithPassword(password string) ConnectionOption {
	return func(params *connectionParams) {
		params.password = password
	}
}

func WithDBName(dbname string) ConnectionOption {
	return func(params *connectionParams) {
		params.dbname = dbname
	}
}

// NewClient creates a new postgres client
func NewClient(opts ...ConnectionOption) (*sql.DB, error) {
	params := newConnectionParamsFromEnv()
	for _, opt := range opts {
		opt(&params)
	}

	db, err := sql.Open("postgres", params.dsn())
	if err != nil {
		return nil, err
	}

	db.SetMaxOpenConns(50)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(time.Hour)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("error connecting to postgres at %s:%d: %w", params.host, params.port, err)
	}
	return db, nil
}

// MustCreateClient panics if a client cannot be created
func MustCreateClient(opts ...ConnectionOption) *sql.DB {
	db, err := NewClient(opts...)
	if err != nil {
		panic(err)
	}
	logger.For(nil).Info("connected to postgres")
	return db
}

// Repositories is the set of postgres repositories used by the server
type Repositories struct {
	WarpletRepository *WarpletRepository
}

// NewRepositories creates the full set of repositories backed by the given client
func NewRepositories(db *sql.DB) *Repositories {
	return &Repositories{
		WarpletRepository: NewWarpletRepository(db),
	}
}
