// Command permitd serves the permit API.
//
// Run with:
//
//	PERMIT__AUTH__SIGNING_KEY=dev go run ./cmd/permitd --bootstrap-admin=root@tripdesk.test
//
// Print a token for a profile and keep serving. The default memory store only
// lives as long as the process, so the profile has to be bootstrapped in the
// same run:
//
//	go run ./cmd/permitd --bootstrap-admin=root@tripdesk.test --issue-token=root@tripdesk.test
//
// With the sqlite or postgres store the token is printed and permitd exits.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/tripdesk/permit"
	"github.com/tripdesk/permit/errors"
	"github.com/tripdesk/permit/guard"
	"github.com/tripdesk/permit/logging"
	"github.com/tripdesk/permit/profiles"
	"github.com/tripdesk/permit/profiles/memory"
	"github.com/tripdesk/permit/profiles/postgres"
	"github.com/tripdesk/permit/profiles/sqlite"
	"github.com/tripdesk/permit/server"

	"google.golang.org/grpc/codes"
)

func main() {
	configFile := flag.String("config", "", "Config file to load on top of "+permit.ConfigFile)
	bootstrapAdmin := flag.String("bootstrap-admin", "", "Email of a super admin to create or promote before serving")
	issueFor := flag.String("issue-token", "", "Print a role token for the profile with this email; exits unless the store is memory")
	flag.Parse()

	if *configFile != "" {
		if err := permit.LoadConfigFile(*configFile); err != nil {
			fmt.Fprintf(os.Stderr, "permitd: %v\n", err)
			os.Exit(1)
		}
	}

	logger := logging.NewLogger(permit.ConfigString("logging.format"))
	ctx := logging.With(context.Background(), logger)
	if w := permit.ConfigWarnings(); w != "" {
		logging.Warnw(ctx, "permitd: config warnings", "warnings", w)
	}

	key := []byte(permit.ConfigString("auth.signingKey"))
	if len(key) == 0 {
		logging.Fatalf(ctx, "permitd: auth.signingKey is required")
	}
	issuer := permit.ConfigString("auth.issuer")

	driver := permit.ConfigString("store.driver")
	store, closeStore, err := openStore(
		driver,
		permit.ConfigString("store.dsn"),
		permit.ConfigString("store.tablePrefix"),
	)
	if err != nil {
		logging.Fatalf(ctx, "permitd: opening store: %v", err)
	}
	defer closeStore()

	svc := profiles.NewService(store)

	if *bootstrapAdmin != "" {
		if _, err := svc.EnsureSuperAdmin(ctx, *bootstrapAdmin, "Super Admin"); err != nil {
			logging.Fatalf(ctx, "permitd: bootstrapping super admin: %v", err)
		}
	}

	if *issueFor != "" {
		tok, err := issueToken(ctx, svc, key, issuer, *issueFor, permit.ConfigDuration("auth.tokenTTL"))
		if err != nil {
			logging.Fatalf(ctx, "permitd: issuing token for %s: %v", *issueFor, err)
		}
		fmt.Println(tok)
		if exitAfterIssue(driver) {
			return
		}
		logging.Warnw(ctx, "permitd: memory store, serving so the issued token stays valid")
	}

	g := guard.New(
		guard.WithHeader(permit.ConfigString("auth.header")),
		guard.WithExtractor(guard.ProfileExtractor(guard.JWTExtractor(key, issuer), svc)),
		guard.WithAuditLogger(guard.LogDecisions(permit.ConfigBool("guard.auditDecisions"))),
	)

	s := server.New(
		server.WithLogger(logger),
		server.WithGuard(g),
		server.WithAPI(server.NewAPI(g, svc)),
	)
	if err := s.Start(); err != nil {
		logging.Fatalf(ctx, "permitd: %v", err)
	}
}

// issueToken signs a role token for the profile registered under email.
func issueToken(ctx context.Context, svc *profiles.Service, key []byte, issuer, email string, ttl time.Duration) (string, error) {
	p, err := svc.GetByEmail(ctx, email)
	if errors.Is(err, profiles.ErrNotFound) {
		return "", errors.WrapPrefix(err, "no profile for "+profiles.NormalizeEmail(email)+
			" (the memory store starts empty; use --bootstrap-admin in the same run)", 0)
	}
	if err != nil {
		return "", err
	}
	return guard.IssueToken(key, issuer, guard.Principal{Subject: p.ID, Role: p.Role, Region: p.Region}, ttl)
}

// exitAfterIssue reports whether permitd can exit once a token is printed.
// Profiles in the memory store vanish with the process, and the token with
// them.
func exitAfterIssue(driver string) bool {
	return driver != "" && driver != "memory"
}

// openStore returns the profile store for driver and a func releasing it.
func openStore(driver, dsn, prefix string) (profiles.Store, func() error, error) {
	switch driver {
	case "", "memory":
		return memory.New(), func() error { return nil }, nil
	case "sqlite":
		s, err := sqlite.New(dsn, sqlite.WithPrefix(prefix))
		if err != nil {
			return nil, nil, err
		}
		return s, s.Close, nil
	case "postgres":
		s, err := postgres.Open(dsn, postgres.WithPrefix(prefix))
		if err != nil {
			return nil, nil, err
		}
		return s, s.Close, nil
	}
	return nil, nil, errors.Codef(codes.InvalidArgument, "unknown store driver %q", driver)
}
