// ABOUTME: Speech recognition engine adapters and the transcription job service
// ABOUTME: Feeds pipeline output to an Engine from a single worker queue
// Package transcribe connects converted audio to a speech recognition engine.
//
// Engine is the boundary to the recognizer. HTTPEngine talks to a
// whisper.cpp compatible server. Service accepts input files, converts each
// one with a pipeline.Processor and transcribes them one at a time, publishing
// job events to subscribers.
//
// Example:
//
//	engine, err := transcribe.NewHTTPEngine(transcribe.HTTPConfig{
//	    Endpoint: "http://127.0.0.1:8080",
//	})
//	svc, err := transcribe.NewService(transcribe.ServiceConfig{
//	    Processor: pipeline.New(pipeline.Config{}),
//	    Engine:    engine,
//	})
//	id, err := svc.Submit("memo.m4a")
package transcribe
