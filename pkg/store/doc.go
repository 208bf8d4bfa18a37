// Package store persists pipeline results.
//
// A [Record] wraps one [io.Output] with the problem hash and an optional
// batch label. Two backends implement [Store]:
//
//   - [FileStore]: one JSON file per record, used by the CLI
//   - [MongoStore]: a MongoDB collection for shared training-data runs
//
// The batch command writes every solved instance to a store, which turns a
// directory of problems into a labelled data set.
package store
