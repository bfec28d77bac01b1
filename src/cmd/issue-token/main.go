// Command issue-token mints a bearer token for local use against the API.
package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/api-sage/core-banking-engine/src/internal/adapter/http/middleware"
	"github.com/api-sage/core-banking-engine/src/internal/config"
	"github.com/api-sage/core-banking-engine/src/internal/domain"
)

func main() {
	subject := flag.String("sub", "", "actor id placed in the token subject")
	role := flag.String("role", string(domain.RoleCustomer), "CUSTOMER, EMPLOYEE or ADMIN")
	ttl := flag.Duration("ttl", time.Hour, "token lifetime")
	flag.Parse()

	if err := issue(*subject, *role, *ttl); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func issue(subject string, rawRole string, ttl time.Duration) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	parsed, err := domain.ParseRole(rawRole)
	if err != nil {
		return err
	}
	actor := domain.Actor{ID: subject, Role: parsed}
	if err := actor.Validate(); err != nil {
		return err
	}

	token, err := middleware.IssueToken([]byte(cfg.AuthSigningKey), cfg.AuthIssuer, actor, ttl, time.Now())
	if err != nil {
		return err
	}
	fmt.Println(token)
	return nil
}
