package main

import (
	"log"
	"strings"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

//Config represents options given in the environment
type Config struct {
	SessionDuration int //in hours; default: 24

	SQLDriver string //required
	SQLDSN    string //required

	ListenAddr string //addr format used for net.Dial; required
	Prefix     string //url prefix to mount api to without trailing slash

	JWTSecret string //required; signs access tokens

	AIEndpoint string //OpenAI-compatible chat completions url; scripted replies when empty
	AIModel    string //model name sent to AIEndpoint

	ChatCacheMaxBytes int //reply cache size; default: 1048576
}

var config = &Config{}

func checkEmpty(val, name string) {
	if val == "" {
		log.Fatalf("FUTURESELF_%s must be configured\n", name)
	}
}

func init() {
	//a missing .env file is fine; the environment may be set directly
	if err := godotenv.Load(); err == nil {
		log.Println("Loaded configuration from .env")
	}

	err := envconfig.Process("FUTURESELF", config)
	if err != nil {
		log.Fatalln("Error reading configuration from environment:", err)
	}

	if config.SessionDuration == 0 {
		config.SessionDuration = 24
	}

	checkEmpty(config.SQLDriver, "SQLDRIVER")
	checkEmpty(config.SQLDSN, "SQLDSN")

	if config.SQLDriver == "mysql" && !strings.Contains(config.SQLDSN, "?parseTime=true") {
		log.Fatalln("mysql DSN must contain \"?parseTime=true\"")
	}

	checkEmpty(config.ListenAddr, "LISTENADDR")
	checkEmpty(config.JWTSecret, "JWTSECRET")

	if config.ChatCacheMaxBytes == 0 {
		config.ChatCacheMaxBytes = 1 << 20
	}
}
