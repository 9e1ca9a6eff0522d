package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/Shivikagarg999/sheduled-backend/internal/shared/auth"
	"github.com/Shivikagarg999/sheduled-backend/internal/shared/config"
)

func main() {
	token := flag.String("token", "", "JWT token to verify")
	flag.Parse()

	if *token == "" {
		fmt.Fprintln(os.Stderr, "Error: -token flag is required")
		fmt.Fprintln(os.Stderr, "Usage: go run ./cmd/verify-jwt -token=<JWT_TOKEN>")
		os.Exit(1)
	}

	// тот же конфиг, что и у tracking-service
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}
	jwtService := auth.NewJWTService(cfg.JWT)

	claims, err := jwtService.ValidateToken(*token)
	if err != nil {
		fmt.Printf("❌ Token validation FAILED: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("✅ Token is VALID\n\n")
	fmt.Printf("  User ID:    %s\n", claims.UserID)
	fmt.Printf("  Email:      %s\n", claims.Email)
	fmt.Printf("  Role:       %s\n", claims.Role)
	fmt.Printf("  Issuer:     %s\n", claims.Issuer)
	fmt.Printf("  Expires At: %s\n", claims.ExpiresAt.Time)

	switch claims.Role {
	case auth.RoleDriver:
		fmt.Printf("\n  may send driver-authenticate with driverId=%s\n", claims.UserID)
	case auth.RoleUser:
		fmt.Printf("\n  may send join with userId=%s\n", claims.UserID)
	case auth.RoleAdmin:
		fmt.Printf("\n  may read /api/v1/presence\n")
	default:
		fmt.Printf("\n  ⚠️  role %s is rejected by /ws\n", claims.Role)
	}
}
