// Command hash-password prints the bcrypt hash to use as COSTS_PASSWORD_HASH.
// The password is read from the first line of standard input.
package main

import (
	"bufio"
	"fmt"
	"log"
	"os"
	"strings"

	apphttp "cardmarket-bi/internal/http"
)

func main() {
	fmt.Fprint(os.Stderr, "Password: ")
	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil && line == "" {
		log.Fatalf("read password: %v", err)
	}
	password := strings.TrimRight(line, "\r\n")

	hash, err := apphttp.HashPassword(password)
	if err != nil {
		log.Fatalf("%v", err)
	}
	fmt.Println(string(hash))
}
