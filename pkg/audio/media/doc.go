// ABOUTME: Media framework for extracting and decoding audio tracks
// ABOUTME: Provides track sources, container sniffing and slot-based codecs
// Package media is the extraction and decoding layer the conversion pipeline
// drives.
//
// A Source enumerates the tracks of a file and hands out compressed frames of
// the selected track. A Codec accepts those frames through a small pool of
// input slots and returns decoded PCM through output slots, with a 10 ms style
// poll on both sides. AsyncCodec implements Codec on top of the streaming
// decoders in package decode.
//
// Example:
//
//	src, err := media.Open(path, media.Options{})
//	codec, err := media.NewCodec(src.Tracks()[0], media.Options{})
package media
