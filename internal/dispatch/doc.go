// Package dispatch is telecast's broadcast engine.
//
// One call to Service.Dispatch takes a broadcast request, creates or resumes
// its durable task record, fans the composed message out to every requested
// channel (honoring each channel's operating window), and returns a report
// partitioning the channels into succeeded and failed.
//
// Per-channel problems (unknown channel, outside operating hours, transport
// rejection) are expected outcomes recorded in the report; only task
// resolution and persistence failures abort a dispatch.
package dispatch
