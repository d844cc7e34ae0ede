package memory

import (
	"testing"

	"github.com/cyp0633/caldora/server/storage"
	"github.com/cyp0633/caldora/server/storage/storagetest"
)

func TestStore(t *testing.T) {
	storagetest.Run(t, func(t *testing.T) storage.Storage {
		return New()
	})
}
