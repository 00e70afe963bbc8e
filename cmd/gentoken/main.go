// Command gentoken mints a bearer token for an account address using the
// server's JWT settings.
package main

import (
	"crypto/ed25519"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"perpdesk/internal/aptos"
	"perpdesk/internal/auth"
)

func main() {
	address := flag.String("address", os.Getenv("XYRA_USER_ADDRESS"), "account address (defaults to the signing key's address)")
	ttl := flag.Duration("ttl", 0, "token lifetime (defaults to JWT_TTL)")
	flag.Parse()

	issuer, secret := os.Getenv("JWT_ISSUER"), os.Getenv("JWT_SECRET")
	if issuer == "" || secret == "" {
		log.Fatal("JWT_ISSUER and JWT_SECRET must be set")
	}
	lifetime := *ttl
	if lifetime == 0 {
		d, err := time.ParseDuration(os.Getenv("JWT_TTL"))
		if err != nil {
			log.Fatal("set -ttl or a valid JWT_TTL")
		}
		lifetime = d
	}
	addr := *address
	if addr == "" {
		key, err := aptos.ParsePrivateKey(os.Getenv("APTOS_PRIVATE_KEY"))
		if err != nil {
			log.Fatal("pass -address or set APTOS_PRIVATE_KEY: ", err)
		}
		addr = aptos.AddressFromPublicKey(key.Public().(ed25519.PublicKey))
	}
	token, err := auth.NewService(issuer, []byte(secret), lifetime).IssueToken(addr)
	if err != nil {
		log.Fatal(err)
	}
	fmt.Println(token)
}
