package main

import (
	"bufio"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/alexedwards/argon2id"
)

// hashpass prints an argon2id hash suitable for AUTH_PASSWORD_HASH.
// The password is read from the first line of stdin.
// Exit code 0 = ok, 1 = empty input, 2 = other error.
func main() {
	memory := flag.Uint("memory", 64*1024, "argon2 memory in KiB")
	iterations := flag.Uint("iterations", 1, "argon2 iterations")
	parallelism := flag.Uint("parallelism", 2, "argon2 parallelism")
	flag.Parse()

	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil && line == "" {
		fmt.Fprintf(os.Stderr, "hashpass error: read stdin: %v\n", err)
		os.Exit(2)
	}
	password := strings.TrimRight(line, "\r\n")
	if password == "" {
		fmt.Fprintln(os.Stderr, "hashpass: empty password")
		os.Exit(1)
	}

	hash, err := argon2id.CreateHash(password, &argon2id.Params{
		Memory:      uint32(*memory),
		Iterations:  uint32(*iterations),
		Parallelism: uint8(*parallelism),
		SaltLength:  16,
		KeyLength:   32,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "hashpass error: %v\n", err)
		os.Exit(2)
	}
	fmt.Println(hash)
}
