package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"
	"time"

	"github.com/common-nighthawk/go-figure"
	"github.com/redis/go-redis/v9"

	accountsrepo "github.com/leetbase/auth-service/accounts/redisrepo"
	"github.com/leetbase/auth-service/auth"
	"github.com/leetbase/auth-service/internal/config"
	"github.com/leetbase/auth-service/mail"
	"github.com/leetbase/auth-service/oauth"
	"github.com/leetbase/auth-service/otp/redisstore"
	profilesrepo "github.com/leetbase/auth-service/profiles/redisrepo"
	"github.com/leetbase/auth-service/server"
	"github.com/leetbase/auth-service/token"
)

func main() {
	for {
		if err := run(); err != nil {
			log.Fatalf("Error running server: %s\n", err)
			time.Sleep(1 * time.Second)
		} else {
			break
		}
	}
	log.Printf("Server stopped\n")
}

func run() (returnError error) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("Recovered from panic: %v\n", r)
			debug.PrintStack()
			returnError = errors.New("panic recovered")
		}
	}()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config.Load: %w", err)
	}
	displayAppname(cfg.AppName)

	handler, err := buildServer(cfg)
	if err != nil {
		return err
	}

	httpServer := &http.Server{Addr: cfg.Addr(), Handler: handler}
	go listenAndServe(httpServer)
	waitForStopSignal()
	returnError = shutdown(httpServer)
	return returnError
}

func buildServer(cfg config.Config) (*server.Server, error) {
	redisOpts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("redis.ParseURL: %w", err)
	}
	redisClient := redis.NewClient(redisOpts)

	notifier, err := mail.NewSMTPNotifier(mail.SMTPConfig{
		Host:     cfg.SMTPHost,
		Port:     cfg.SMTPPort,
		Username: cfg.SMTPEmail,
		Password: cfg.SMTPPassword,
		Sender:   cfg.SMTPSender,
	})
	if err != nil {
		return nil, fmt.Errorf("mail.NewSMTPNotifier: %w", err)
	}

	tokens, err := token.NewService(cfg.TokenSecret, cfg.RefreshTokenSecret, cfg.AccessTokenTTL, cfg.RefreshTokenTTL)
	if err != nil {
		return nil, fmt.Errorf("token.NewService: %w", err)
	}

	deps := auth.Deps{
		Accounts: accountsrepo.New(redisClient),
		Profiles: profilesrepo.New(redisClient),
		Pins:     redisstore.New(redisClient),
		Notifier: notifier,
		Provider: oauth.NewGitHub(cfg.GithubClientID, cfg.GithubClientSecret),
	}

	srv, err := server.New(cfg, deps, tokens)
	if err != nil {
		return nil, fmt.Errorf("server.New: %w", err)
	}
	return srv, nil
}

func listenAndServe(server *http.Server) error {
	log.Printf("Server listening on %s\n", server.Addr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server.ListenAndServe %w", err)
	}
	return nil
}

func waitForStopSignal() {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop
}

func shutdown(server *http.Server) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server.Shutdown: %w", err)
	}
	return nil
}

func displayAppname(appname string) {
	myFigure := figure.NewFigure(appname, "cybermedium", true)
	myFigure.Print()
	fmt.Println()
}
