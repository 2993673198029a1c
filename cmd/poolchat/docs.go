package main

// General API documentation for swaggo. Run `make swagger-gen` to generate docs.
//
// @title           poolchat API
// @version         1.0
// @description     Chat with a model whose layers run tensor-parallel across a worker pool.
//
// @license.name   MIT
// @license.url    https://opensource.org/licenses/MIT
//
// @BasePath  /
//
// @schemes http
