package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/eventide/rsvp/internal/handler/dto"
	"github.com/eventide/rsvp/internal/repository"
	"github.com/eventide/rsvp/internal/service"
)

func main() {
	var (
		databaseURL = flag.String("database-url", os.Getenv("DATABASE_URL"), "PostgreSQL connection string")
		name        = flag.String("name", "", "Attendee name")
		email       = flag.String("email", "", "Attendee email")
		requests    = flag.String("requests", "", "Special requests (optional)")
		format      = flag.String("format", "plain", "Output format: plain or json")
	)
	flag.Parse()

	if *databaseURL == "" {
		fmt.Fprintln(os.Stderr, "DATABASE_URL is required")
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	repo, err := repository.New(ctx, *databaseURL)
	if err != nil {
		fmt.Fprintln(os.Stderr, "connect database:", err)
		os.Exit(1)
	}
	defer repo.Close()

	input := service.CreateRSVPInput{Name: *name, Email: *email}
	if *requests != "" {
		input.SpecialRequests = requests
	}

	svc := service.NewRSVPService(repo, nil, nil, nil, nil)
	rsvp, err := svc.Create(ctx, input)
	if err != nil {
		var verr *service.ValidationError
		if errors.As(err, &verr) {
			for field, msg := range verr.Fields {
				fmt.Fprintf(os.Stderr, "%s: %s\n", field, msg)
			}
			os.Exit(2)
		}
		fmt.Fprintln(os.Stderr, service.NewCreateResult(err).Error)
		os.Exit(1)
	}

	switch strings.ToLower(*format) {
	case "plain":
		fmt.Println(rsvp.ID)
	case "json":
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		_ = enc.Encode(dto.ToRSVPResponse(rsvp))
	default:
		fmt.Fprintln(os.Stderr, "invalid format; use plain or json")
		os.Exit(1)
	}
}
