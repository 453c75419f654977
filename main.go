package main

import (
	"context"

	"github.com/ssaemtalk/server/config"
	"github.com/ssaemtalk/server/routes"
	"github.com/ssaemtalk/server/store"
	"github.com/ssaemtalk/server/store/gormstore"
	"github.com/ssaemtalk/server/store/memstore"
	"github.com/ssaemtalk/server/utils"
)

func main() {
	cfg := config.Load()

	// Initialize logger early
	if err := utils.InitLogger(cfg); err != nil {
		panic(err)
	}
	defer func() { _ = utils.Logger.Sync() }()

	st, err := openStore(cfg)
	if err != nil {
		utils.Sugar.Fatalf("open %s store: %v", cfg.StorageDriver, err)
	}

	hub := utils.NewRoomHub(utils.GetRedis())
	hub.Start(context.Background())

	r := routes.SetupRouter(st, hub)

	utils.Sugar.Infof("Starting server on port %s (graceful, storage=%s)", cfg.AppPort, cfg.StorageDriver)
	err = utils.GraceServer(":"+cfg.AppPort, r,
		hub.Stop,
		func() {
			if err := st.Close(); err != nil {
				utils.Sugar.Warnf("close store: %v", err)
			}
		},
		func() {
			if err := utils.CloseRedis(); err != nil {
				utils.Sugar.Warnf("close redis: %v", err)
			}
		},
	)
	if err != nil {
		utils.Sugar.Fatalf("server stopped with error: %v", err)
	}
}

// openStore picks the storage adapter. The memory driver keeps everything in process
// and is meant for demos and local front-end work.
func openStore(cfg config.AppConfig) (store.Store, error) {
	if cfg.StorageDriver == "memory" {
		utils.Sugar.Warn("using in-memory storage; data is lost on restart")
		return memstore.New(), nil
	}
	db, err := config.OpenDatabase(cfg, gormstore.Models()...)
	if err != nil {
		return nil, err
	}
	return gormstore.New(db), nil
}
