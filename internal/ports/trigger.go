package ports

import (
	"context"

	"cascade-builds/internal/types"
)

type TriggerContextPort interface {
	Trigger(ctx context.Context) (types.Trigger, error)
}
