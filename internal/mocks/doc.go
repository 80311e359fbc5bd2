// Package mocks holds test doubles shared across packages: a scriptable
// image generator that records calls and peak concurrency, and a JWT
// service.
//
//	gen := &mocks.MockGenerator{
//	    GenerateImageFn: func(ctx context.Context, req generation.ImageRequest) (*domain.Artifact, error) {
//	        return nil, generation.ErrContentBlocked
//	    },
//	}
package mocks
