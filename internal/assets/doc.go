// Package assets classifies downloaded asset folders and resolves their
// display metadata.
//
// Validation is a pure function of the current directory contents: a
// folder is valid when it holds at least one 3D model file, or a
// structured-data metadata file together with at least one texture image.
// Nothing is cached and no side effects occur, so repeated checks on an
// unchanged folder agree.
package assets
