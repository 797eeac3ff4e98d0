package main

// General API documentation for swaggo. Regenerate internal/httpapi/docs with
// `swag init -g cmd/relax3d/docs.go -o internal/httpapi/docs`.
//
// @title           relax3d API
// @version         1.0
// @description     Starts, cancels and follows Relax3D preprocessing and relaxation runs.
//
// @BasePath  /
//
// @schemes http
