// Package recorder archives resolved player actions (trade executions, quiz
// outcomes, forecast settlements) to PostgreSQL with batched inserts. It is
// optional: when no database is configured the orchestrator runs without a
// recorder and actions are simply not persisted.
package recorder
