package serviceiface

// Service is a long-running component started and stopped by the app manager in the
// order given by the service sequence.
type Service interface {
	Name() string
	Start() error
	Stop() error
}
