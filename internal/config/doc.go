// Package config loads the service settings with viper from defaults, an
// optional config.yaml and STUDIO_-prefixed environment variables, then
// validates them with struct tags. Batch concurrency and the retry policy
// for image requests live in the generation section.
package config
