package mcpserver

// ItemContract describes the to-do item shape and the rules the tools enforce.
const ItemContract = `# Tasklist Item Contract

Every to-do item has exactly these fields:

| field     | type    | notes                                        |
|-----------|---------|----------------------------------------------|
| id        | string  | opaque, assigned on creation, never changes  |
| title     | string  | required, trimmed, never blank               |
| done      | boolean | false when created                           |
| createdAt | string  | RFC 3339 timestamp, set on creation          |
| updatedAt | string  | RFC 3339 timestamp, set on every write       |

## Rules

1. **Titles** are trimmed of leading and trailing white space. A title that is
   empty after trimming is rejected. Case and interior spacing are kept.
2. **Updates are partial.** Only the fields passed to update_item change. Passing
   neither title nor done still refreshes updatedAt.
3. **Ids are opaque.** Always take them from list_items or create_item output;
   never construct one.
4. **Ordering.** list_items returns the newest item first.
5. **Deletes are permanent.** There is no trash or undo.
`
