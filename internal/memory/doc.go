// Package memory keeps narrative context bounded over an arbitrarily deep
// scene tree.
//
// The linear path to a scene is the story read so far: the selected chain of
// every earlier root, then the nodes from the scene's own root down through
// branches to that scene. Once the path grows a full window past the archive
// cursor (State.ArchiveDepth), the oldest batch of scene summaries is folded
// into one archived chapter summary and the cursor advances. Triggers depend
// only on path depth, never on scene ids, so branching trees archive
// correctly.
package memory
