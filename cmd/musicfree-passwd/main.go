// Command musicfree-passwd prints the bcrypt hash to use as ADMIN_PASSWORD_HASH.
package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"musicfree/internal/auth"
	"musicfree/internal/logging"
)

func main() {
	fmt.Fprint(os.Stderr, "password: ")
	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil && line == "" {
		logging.Fatal(err, "read password")
	}
	hash, err := auth.HashPassword(strings.TrimRight(line, "\r\n"))
	if err != nil {
		logging.Fatal(err, "hash password")
	}
	fmt.Println(hash)
}
