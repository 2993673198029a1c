// Package engine is the numerical layer behind a chat session. It exposes
// the Model capability (set a message prefix, produce the next increment,
// report whether generation finished, clear cached context) and the status
// stream reported while a model loads.
//
// Files:
//   - model.go: Model, Loader, StartLoad and the Loading handle.
//   - status.go: Status values and the StatusChannel source.
//   - tokenizer.go: byte-level chat-template tokenizer.
//   - network.go: reference recurrent network whose weights live in the pool.
//   - sampler.go: temperature and top-p sampling.
//   - generator.go: token history and incremental decoding.
//   - chat.go: Model implementation over tokenizer and generator.
//   - rnn_loader.go: creates the pool and uploads the reference network.
//   - stream.go, llama.go: go-llama.cpp backend (build tag llama).
//   - config.go: backend selection.
package engine
