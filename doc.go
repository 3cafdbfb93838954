// Package hl7v2 holds the shared configuration, result and metrics types of
// the HL7 v2.x codec.
//
// The codec itself lives in the engine package; the message model, wire
// encoding and version plugins live under pkg/.
//
// # Quick Start
//
//	import (
//	    "github.com/gofhir/hl7v2"
//	    "github.com/gofhir/hl7v2/engine"
//	)
//
//	codec, err := engine.New(hl7v2.WithVersion(hl7v2.V251))
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	msg, result, err := codec.Decode(ctx, payload)
//	if err != nil {
//	    // payload holds no readable message
//	}
//	defer result.Release()
//
//	ack, err := codec.ACK(msg, result)
//	conn.Write(codec.Frame(ack))
//
// # Leniency
//
// Decoding never fails on field content. Malformed values, unknown segments
// and unregistered versions are kept verbatim and reported as issues by
// validation, so a message always round-trips. Decoding fails only for
// empty input, unreadable delimiters or input without any segment.
//
// # Functional Options
//
//	codec, err := engine.New(
//	    hl7v2.WithVersions(hl7v2.V23, hl7v2.V251),
//	    hl7v2.WithTypePolicy("ADT", structure.Strict),
//	    hl7v2.WithRules(ruleSet),
//	    hl7v2.WithWorkerCount(8),
//	)
//
// StrictOptions and LenientOptions bundle common settings.
//
// # Versions and Plugins
//
// Each HL7 version is a registry plugin providing segment schemas and
// message structures. Site extensions (Z segments, local structures) are
// installed with WithPlugins; lookups fall back from TYPE^TRIGGER to TYPE
// to the version default.
//
// # Performance Features
//
//   - Frozen registry: lock-free lookups after start-up
//   - sync.Pool: results are pooled, call Release when done
//   - Worker pool: parallel batch decoding with DecodeBatch
//   - Streaming: MLLP streams and batch files with DecodeStream
//   - Generic cache: compiled FHIRPath rules are cached
package hl7v2
