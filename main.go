package main

import "github.com/ksrcrypto/crypto-backend/cmd"

func main() {
	cmd.Execute()
}
