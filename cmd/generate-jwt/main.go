package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/Shivikagarg999/sheduled-backend/internal/shared/auth"
	"github.com/Shivikagarg999/sheduled-backend/internal/shared/config"
)

func main() {
	userID := flag.String("user", "550e8400-e29b-41d4-a716-446655440000", "user or driver id")
	email := flag.String("email", "ops@sheduled.com", "email address")
	role := flag.String("role", auth.RoleDriver, "USER|DRIVER|ADMIN")
	port := flag.Int("port", 5000, "tracking service port used in printed commands")
	flag.Parse()

	switch *role {
	case auth.RoleUser, auth.RoleDriver, auth.RoleAdmin:
	default:
		fmt.Fprintf(os.Stderr, "Error: unknown role %q (USER|DRIVER|ADMIN)\n", *role)
		os.Exit(1)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}
	jwtService := auth.NewJWTService(cfg.JWT)

	token, err := jwtService.GenerateToken(*userID, *email, *role)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error generating JWT token: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("\n✅ JWT Token generated (%s, %s)\n\n", *userID, *role)
	fmt.Printf("%s\n", token)

	fmt.Printf("\n💡 WebSocket:\n")
	fmt.Printf("  websocat 'ws://localhost:%d/ws?token=%s'\n", *port, token)
	if *role == auth.RoleAdmin {
		fmt.Printf("\n💡 Presence:\n")
		fmt.Printf("  curl -H 'Authorization: Bearer %s' http://localhost:%d/api/v1/presence\n", token, *port)
	}
	fmt.Println()
}
