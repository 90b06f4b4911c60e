package main

import (
	"testing"

	_ "github.com/shopledger/shopledger/testing"
)

func TestMainSkipsStartupInTestMode(t *testing.T) {
	main()
}
