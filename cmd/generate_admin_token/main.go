package main

import (
	"fmt"
	"log"

	"github.com/Arnav10090/Customer-web-portal/internal/config"
	"github.com/Arnav10090/Customer-web-portal/internal/utils"
)

// Выпускает токен администратора (user_id = 0, срок действия 1 год)
func main() {
	cfg := config.Load()
	if cfg.JWTSecret == "" {
		log.Fatal("JWT_SECRET не задан")
	}

	tokens := utils.NewTokenIssuer(cfg.JWTSecret, cfg.AccessTokenTTL, cfg.RefreshTokenTTL)
	tokenString, err := tokens.GenerateAdminJWT()
	if err != nil {
		log.Fatalf("Ошибка генерации токена администратора: %v", err)
	}

	fmt.Printf("Generated admin token: %s\n", tokenString)
}
