// Package core provides the business logic for bulk product imports.
//
// This package holds all domain logic independent of any transport or
// storage driver. Web handlers, the worker process and tests drive it through
// small interfaces ([ProductStore], [JobQueue], [JobStatusStore],
// [WebhookStore]) that the database and jobqueue packages implement.
//
// # Import Pipeline
//
// An upload travels through the system in five steps:
//
//  1. [Service.ReceiveUpload] checks the extension, streams the body to disk
//     under a uuid-prefixed name and validates the header with [ValidateFile].
//  2. A PENDING [JobSnapshot] is written and a [Job] is pushed to the queue.
//  3. A [Worker] pops the job and hands it to the [Importer].
//  4. [Importer.Run] counts rows, then reads the file in chunks, dedupes each
//     chunk by lower-cased sku (last occurrence wins) and upserts it in one
//     transaction, reporting progress after every second chunk.
//  5. The worker records SUCCESS or FAILURE and the [Dispatcher] fans the
//     outcome out to enabled webhooks.
//
// # Progress
//
// [ProgressStreamer] polls the status store and emits one event per state
// change (and every poll while in PROGRESS). It ends after exactly one
// terminal event.
//
// # Error Handling
//
// Errors are returned with context via fmt.Errorf wrapping. Domain failures
// use sentinel errors ([ErrNotFound], [ErrDuplicateSKU], ...) and
// [*ValidationError]. [MapError] converts any error into a [UserMessage] with
// a support code for display.
package core
