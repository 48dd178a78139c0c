package mcpserver

// TagFormatContract describes how tags are written and how the tag tools
// pick their files.
const TagFormatContract = `# LiveTagger Tag Format

Tags live in the Ableton Live folder metadata document
(` + "`" + `Ableton Folder Info/dc66a3fa-0fe1-5352-91cf-3ec237e9ee90.xmp` + "`" + `) of the folder
holding the sample. Live shows them in its browser.

## Tags

- A tag is a ` + "`" + `Category|Subcategory` + "`" + ` pair, e.g. ` + "`" + `Drums|Kick` + "`" + ` or
  ` + "`" + `Creator|17cupsofcoffee` + "`" + `. A tag without ` + "`" + `|` + "`" + ` lands in Live's
  default category.
- Tags are case sensitive and compared verbatim. Adding a tag a file already
  carries is a no-op; duplicates in one request collapse.
- Empty tags are rejected.

## Selecting files

- ` + "`" + `include` + "`" + ` is a glob relative to the library root. ` + "`" + `*` + "`" + `
  matches within one folder, ` + "`" + `**` + "`" + ` crosses folders, e.g.
  ` + "`" + `Drums/**/*.wav` + "`" + `.
- Only audio Live can load is tagged: wav, wave, aif, aiff, flac, ogg, mp3, mp4, m4a.
  Live's own metadata (` + "`" + `.asd` + "`" + ` files and ` + "`" + `Ableton Folder Info` + "`" + `)
  is never matched.

## Writing

- Tool calls are dry runs unless ` + "`" + `commit` + "`" + ` is true. A dry run reports what
  would change and touches nothing.
- ` + "`" + `backup` + "`" + ` keeps the previous document as ` + "`" + `<document>.bak` + "`" + `.
- A folder whose document cannot be read stops the run unless
  ` + "`" + `keep_going` + "`" + ` is true.
- Removing tags never creates a document.

## Example

Tag every kick in Drums and keep a backup:

` + "```" + `json
{"include": "Drums/**/bd*.wav", "tags": ["Drums|Kick"], "commit": true, "backup": true}
` + "```" + `
`
