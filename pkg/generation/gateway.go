package generation

import (
	"context"

	"github.com/cbodonnell/monuments/pkg/game/types"
)

// Gateway submits image generation jobs. The returned id is echoed back
// by the generation webhook once the asset is ready.
type Gateway interface {
	Generate(ctx context.Context, prompt string) (types.MonumentID, error)
}
