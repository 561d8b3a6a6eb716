// devtoken mints and checks identity tokens for local development, using
// the same codec the services verify with. It is NOT part of any deployed
// surface; it exists so curl sessions against a local stack do not need a
// registration round-trip first.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/joho/godotenv"

	"github.com/rideway-co/marketplace-api/internal/domain"
	"github.com/rideway-co/marketplace-api/internal/platform/auth/token"
)

func main() {
	_ = godotenv.Load()

	var (
		secret   = flag.String("secret", os.Getenv("MARKET_SECRET"), "token signing secret (defaults to MARKET_SECRET)")
		username = flag.String("username", "", "subject to mint a token for")
		verify   = flag.String("verify", "", "token to verify instead of minting")
	)
	flag.Parse()

	if strings.TrimSpace(*secret) == "" {
		log.Fatal("missing secret: pass -secret or set MARKET_SECRET")
	}
	codec, err := token.New([]byte(*secret))
	if err != nil {
		log.Fatalf("init codec: %v", err)
	}

	switch {
	case *verify != "":
		sub, err := codec.Verify(*verify)
		if err != nil {
			log.Fatalf("verify: %v", err)
		}
		fmt.Printf("valid token for %q\n", sub)
	case *username != "":
		tok, err := codec.Issue(domain.Username(*username))
		if err != nil {
			log.Fatalf("issue: %v", err)
		}
		fmt.Println(tok)
	default:
		flag.Usage()
		os.Exit(2)
	}
}
