// Package pipeline executes one task end to end: acquire the audio artifact
// from its link, embed square cover art when the source carries any, and move
// the finished file into its destination directory.
//
// Every run owns a scratch directory scoped to the task token; the scope is
// released on success, failure, and panic alike. Status transitions flow
// through the queue store and are mirrored to the status sink in order.
package pipeline
