package main

import (
	"bufio"
	"errors"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/aussiebroadwan/alimatrix/internal/survey/app"
	"github.com/aussiebroadwan/alimatrix/pkg/cryptox"
)

func main() {
	if len(os.Args) > 1 && os.Args[1] == "hash-password" {
		if err := hashPassword(); err != nil {
			log.Fatalf("hash-password: %v", err)
		}
		return
	}

	cfg := app.LoadConfig()

	application, err := app.New(cfg)
	if err != nil {
		log.Fatalf("failed to initialize application: %v", err)
	}

	if err := application.Run(); err != nil {
		log.Fatalf("application error: %v", err)
	}
}

// hashPassword reads a password from stdin and prints the argon2id string
// for ADMIN_PASSWORD_HASH, peppered with the service's PEPPER_FILE.
func hashPassword() error {
	cfg := app.LoadConfig()
	pepper, err := cryptox.LoadPepper(cfg.PepperFile)
	if err != nil {
		return err
	}

	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil && line == "" {
		return fmt.Errorf("read password: %w", err)
	}
	password := strings.TrimRight(line, "\r\n")
	if password == "" {
		return errors.New("empty password")
	}

	hash, err := cryptox.PasswordHasher{Pepper: pepper}.Hash(password)
	if err != nil {
		return err
	}
	fmt.Println(hash)
	return nil
}
