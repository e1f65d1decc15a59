// Package services contains the core application services: the index
// lifecycle manager and the question-answering service. Services
// depend only on ports and domain types; adapters are injected at
// wiring time.
package services
