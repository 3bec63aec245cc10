// Package extract unpacks downloaded asset bundles into sibling folders.
//
// Format detection and decompression are delegated to mholt/archives, so
// zip, tar (with the usual compressions), 7z, and rar bundles all land in
// a folder named after the bundle minus its extension. Member paths are
// sanitized before writing; a bundle that tries to escape its destination
// aborts the extraction.
package extract
