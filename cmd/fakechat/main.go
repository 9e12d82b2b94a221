package main

import (
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/Netflix/go-env"

	"bulk-sender/internal/fakechat"
	"bulk-sender/internal/logging"
)

type environment struct {
	Port      string `env:"PORT,default=8081"`
	Invalid   string `env:"FAKECHAT_INVALID_PHONES"`
	ChatDelay string `env:"FAKECHAT_CHAT_DELAY,default=0s"`
}

func main() {
	cfg := logging.DefaultConfig()
	cfg.Output = os.Stdout
	logger := logging.New(cfg)

	var e environment
	if _, err := env.UnmarshalFromEnviron(&e); err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	delay, err := time.ParseDuration(e.ChatDelay)
	if err != nil {
		logger.Error("invalid FAKECHAT_CHAT_DELAY", "error", err)
		os.Exit(1)
	}

	var invalid []string
	for _, p := range strings.Split(e.Invalid, ",") {
		if p = strings.TrimSpace(p); p != "" {
			invalid = append(invalid, p)
		}
	}

	server := fakechat.NewServer(logger,
		fakechat.WithChatDelay(delay),
		fakechat.WithInvalidPhones(invalid...),
	)

	addr := fmt.Sprintf(":%s", e.Port)
	logger.Info("starting fake chat server",
		"port", e.Port,
		"landing", fmt.Sprintf("http://localhost:%s/", e.Port),
		"send", fmt.Sprintf("http://localhost:%s/send", e.Port),
		"invalid_phones", invalid,
	)

	if err := http.ListenAndServe(addr, server); err != nil {
		logger.Error("server failed", "error", err)
		os.Exit(1)
	}
}
