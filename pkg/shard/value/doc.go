// Package value defines the tagged union that flows between units and the
// reference-counted object handles that let units share opaque resources.
//
// Key constructs:
//   - Var: None, Bool, Int, Float, Float2, String, Bytes, Seq, Object, Image
//     and ContextVar (a variable reference literal)
//   - TypeInfo/Types: compose-time shapes and the matching rules between them
//   - Handle: atomic refcount, vendor/type tags, drop and clone glue
//   - Borrow/UnwrapOwned: tag-checked access to object payloads
package value
