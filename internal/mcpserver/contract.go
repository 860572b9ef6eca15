package mcpserver

// ContentModel describes how the blog database must be shaped for posts to
// appear, for LLM consumers that help authors prepare content.
const ContentModel = `# Folio Content Model

Posts are pages of one document database. Only pages whose Published
checkbox is ticked are served, newest PublishedAt first.

## Properties

| Property    | Type         | Use                                                    |
|-------------|--------------|--------------------------------------------------------|
| (title)     | title        | Post title. Any property name works; the type matters. |
| Slug        | rich_text    | URL slug. Empty means the slugified title.             |
| Description | rich_text    | Summary shown in listings and metadata.                |
| Category    | select       | One category; its slugified name is the category URL.  |
| Tags        | multi_select | Free-form tags.                                        |
| Published   | checkbox     | Only ticked pages are public.                          |
| PublishedAt | date         | Publish date. Empty means the page creation time.      |
| Thumbnail   | url          | Used when the page has no cover image.                 |

## Blocks

Rendered: paragraph, heading_1..3 (toggleable headings included), bulleted
and numbered lists (nested), to_do, toggle, quote, callout, code, image,
divider, table, bookmark and equation. Any other block type is skipped
without error.

Headings at the top level of the page form the table of contents. Reading
time assumes 200 words per minute.
`
