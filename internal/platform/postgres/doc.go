// Package postgres persists finished educational content in a PostgreSQL
// database. Task state itself lives in Redis; this package only holds the
// durable output of completed pipelines.
package postgres
