package core

import (
	"testing"

	"creatorhub/testutil"
)

func TestStoreDoesNotReachIntoDrivers(t *testing.T) {
	testutil.AssertNoDirectImports(t, ".", testutil.Under(testutil.Module+"/internal"),
		"the store talks to persistence through its Backend interface")
}
