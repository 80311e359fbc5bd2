// Package generation defines the boundary between the studio and external
// generative AI services. The Generator interface covers the two remote
// calls the studio makes: analyzing uploaded images into a creative plan, and
// rendering a single output image. Implementations live under
// internal/platform (Gemini) and internal/mocks (tests).
package generation
