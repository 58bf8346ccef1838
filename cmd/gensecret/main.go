// Prints random signing secrets: one for access tokens, one for refresh.
// Access and refresh secrets must be independent, so both are generated
// in one run to make it harder to reuse a single value for both.
package main

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"
)

const SecretKeyBytesLen = 32

func main() {
	secret := func() string {
		b := make([]byte, SecretKeyBytesLen)

		_, err := rand.Read(b)
		if err != nil {
			fmt.Printf("error while generating secret key: %v", err)
			os.Exit(1)
		}

		return hex.EncodeToString(b)
	}

	fmt.Printf("ACCESS_TOKEN_SECRET=%s\n", secret())
	fmt.Printf("REFRESH_TOKEN_SECRET=%s\n", secret())
}
