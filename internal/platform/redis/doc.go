// Package redis implements the durable task store on Redis.
//
// Task records live in one hash per task, with per-user and global active
// sets and a per-user completed-task history list alongside. Every compound
// mutation (admission plus registration, stage advancement, terminal
// transitions) is a single Lua script, which makes it atomic with respect
// to every other client of the store, including clients in other processes.
package redis
