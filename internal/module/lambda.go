package module

import (
	"context"

	"github.com/vk/pluginrig/internal/fields"
	"github.com/vk/pluginrig/internal/proptype"
)

// lambdaImpl adapts a bare function to the Impl contract. Every lambda
// shares this Go type, so the identity tag is what keeps two lambdas with
// the same property type from colliding in caches and equality.
type lambdaImpl[PT proptype.PropertyType] struct {
	Base
	fn func(ctx context.Context, args []any) ([]any, error)
}

func (l *lambdaImpl[PT]) Run(ctx context.Context, inputs fields.InputMap, _ SubmodMap) (fields.ResultMap, error) {
	args, err := proptype.UnwrapInputs[PT](inputs)
	if err != nil {
		return nil, err
	}
	vals, err := l.fn(ctx, args)
	if err != nil {
		return nil, err
	}
	var pt PT
	return proptype.WrapResults[PT](pt.Results(), vals...)
}

// Lambda wraps fn as a module satisfying the property type PT. The token
// is the lambda's identity: it distinguishes this function from every
// other lambda with the same signature, and it is mixed into the context
// hash, so the token must be unique per distinct behavior or memoization
// will conflate them.
func Lambda[PT proptype.PropertyType](token string, fn func(ctx context.Context, args []any) ([]any, error)) *Module {
	impl := &lambdaImpl[PT]{fn: fn}
	impl.identityTag = token
	Satisfies[PT](&impl.Base)
	return New(impl)
}
