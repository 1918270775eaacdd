/*
Package observability provides tools for monitoring the Vigil engine.

It includes a Prometheus observer that counts validation passes and failing
codes, a structured-logging observer for auditing, and a fan-out to combine
them. All of them implement schema.Observer and can be passed to the engine
with vigil.WithObserver.
*/
package observability
