package memory_test

import (
	"testing"

	"github.com/aretw0/replan/pkg/adapters/memory"
	"github.com/aretw0/replan/pkg/ports/tests"
)

func TestMemoryStore_Contract(t *testing.T) {
	tests.RunStoreContract(t, memory.NewStore())
}

func TestMemoryLocker_Contract(t *testing.T) {
	tests.RunLockerContract(t, memory.NewLocker())
}
