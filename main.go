package main

import (
	"context"
	"database/sql"
	"log"
	"net/http"
	"os"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/gorilla/handlers"
	"github.com/spidervirus/FutureSelf/api"
	"github.com/spidervirus/FutureSelf/httpapi"
)

func main() {
	db, err := sql.Open(config.SQLDriver, config.SQLDSN)
	if err != nil {
		log.Fatalln("Could not open database:", err)
	}

	if err = api.EnsureSchema(context.Background(), db); err != nil {
		log.Fatalln("Could not ensure schema:", err)
	}

	s := httpapi.NewMemorySessionStore(time.Hour * time.Duration(config.SessionDuration))

	r := httpapi.NewRouter(os.Stdout, s, db, &httpapi.RouterConfig{
		JWTSecret:     config.JWTSecret,
		AIEndpoint:    config.AIEndpoint,
		AIModel:       config.AIModel,
		CacheMaxBytes: config.ChatCacheMaxBytes,
	})

	chain := handlers.CompressHandler(http.StripPrefix(config.Prefix, r))

	log.Println("Listening on:", config.ListenAddr)
	log.Println(http.ListenAndServe(config.ListenAddr, chain))
}
