package cmd

import (
	"strings"
	"testing"
)

func TestRunSeed_RequiresInput(t *testing.T) {
	err := runSeed(nil)
	if err == nil {
		t.Fatal("runSeed() with no flags = nil, want error")
	}
	if !strings.Contains(err.Error(), "nothing to seed") {
		t.Errorf("err = %v, want nothing-to-seed", err)
	}
}

func TestRunSeed_RejectsUnknownFlag(t *testing.T) {
	if err := runSeed([]string{"-bogus"}); err == nil {
		t.Fatal("runSeed(-bogus) = nil, want flag error")
	}
}
