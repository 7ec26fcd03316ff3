// Package submission drives a batch of proxy jobs through the AME web service.
//
// A Driver brings the service up once per run, then submits jobs strictly in
// order with one request in flight. Busy replies are retried after a fixed
// delay up to the endpoint's retry limit, and a cooldown separates
// consecutive jobs. Each job ends in exactly one Outcome, collected into a
// Report that optional Recorder and Notifier hooks receive.
//
// AcquireRunLock serializes submission runs across proxyoda processes on the
// same host.
package submission
