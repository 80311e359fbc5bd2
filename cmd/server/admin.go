package main

import (
	"context"
	"fmt"
	"io"

	"github.com/google/uuid"
	"github.com/phrazzld/studio-api/internal/config"
	"github.com/phrazzld/studio-api/internal/service/auth"
)

// creditGranter is the part of studio.Service used by -grant-user.
type creditGranter interface {
	Grant(ctx context.Context, userID uuid.UUID, amount int) (int, error)
}

// grantCredits tops up a user's balance and prints the result.
func grantCredits(ctx context.Context, out io.Writer, granter creditGranter, userID uuid.UUID, amount int) error {
	balance, err := granter.Grant(ctx, userID, amount)
	if err != nil {
		return fmt.Errorf("failed to grant credits: %w", err)
	}
	_, err = fmt.Fprintf(out, "granted %d credits to %s, balance is now %d\n", amount, userID, balance)
	return err
}

// issueToken prints a signed access token for userID.
func issueToken(ctx context.Context, out io.Writer, cfg config.AuthConfig, userID uuid.UUID) error {
	jwtService, err := auth.NewJWTService(cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize JWT service: %w", err)
	}
	token, err := jwtService.GenerateToken(ctx, userID)
	if err != nil {
		return fmt.Errorf("failed to generate token: %w", err)
	}
	_, err = fmt.Fprintln(out, token)
	return err
}
