// Package scene builds the scene graph of a digital-twin scene and
// serializes it to the platform's scene document.
//
// Nodes are authored as a tree (a Node holds its child Nodes) and
// flattened on insertion into a single append-only array of records.
// Parents refer to their children, and the document to its roots, only
// by position in that array.
package scene
