package web

import (
	"context"
	"io"

	"github.com/a-h/templ"
)

func EpisodeList(data EpisodeListData) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		writePageStart(w, "Episodes")
		_, _ = io.WriteString(w, `      <header class="hero">
        <span class="tag">Admin</span>
        <h1>Episodes</h1>
        <p><a href="/">Back to dashboard</a></p>
      </header>
`)
		writeFlash(w, data.Flash)
		writeError(w, data.Error)
		_, _ = io.WriteString(w, `      <section class="panel">
        <h2>New episode</h2>
        <form method="post" action="/admin/episodes" class="stack">
          <input name="title" placeholder="Title" maxlength="140" required/>
          <textarea name="summary" placeholder="Summary" rows="3"></textarea>
          <button type="submit" class="primary">Create episode</button>
        </form>
      </section>

      <section class="panel">
        <table class="table">
          <thead><tr><th>Title</th><th>Updated</th><th></th></tr></thead>
          <tbody>
`)
		if len(data.Episodes) == 0 {
			_, _ = io.WriteString(w, `            <tr><td colspan="3">No episodes yet.</td></tr>
`)
		}
		for _, episode := range data.Episodes {
			_, _ = io.WriteString(w, `            <tr><td><a href="/admin/episodes/`+esc(episode.ID)+`">`+esc(episode.Title)+`</a></td><td>`+esc(formatTime(episode.UpdatedAt))+`</td>
              <td><form method="post" action="/admin/episodes/`+esc(episode.ID)+`/delete"><button type="submit" class="danger">Delete</button></form></td></tr>
`)
		}
		_, _ = io.WriteString(w, `          </tbody>
        </table>
      </section>
`)
		writePageEnd(w)
		return nil
	})
}

// EpisodeEditor lists blocks grouped under their scenes with the authoring
// controls for each block.
func EpisodeEditor(data EpisodeEditorData) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		writePageStart(w, data.Episode.Title)
		_, _ = io.WriteString(w, `      <header class="hero">
        <span class="tag">Episode</span>
        <h1>`+esc(data.Episode.Title)+`</h1>
        <p><a href="/admin/episodes">All episodes</a></p>
      </header>
`)
		writeFlash(w, data.Flash)
		writeError(w, data.Error)
		_, _ = io.WriteString(w, `      <section class="panel">
        <form method="post" action="/admin/episodes/`+esc(data.Episode.ID)+`" class="stack">
          <input name="title" value="`+esc(data.Episode.Title)+`" maxlength="140" required/>
          <textarea name="summary" rows="3">`+esc(data.Episode.Summary)+`</textarea>
          <button type="submit" class="secondary">Save episode</button>
        </form>
      </section>
`)
		for _, group := range data.Groups {
			_, _ = io.WriteString(w, `      <section class="panel scene-group">
`)
			if group.Scene != nil {
				writeBlockEditor(w, *group.Scene, data)
			} else {
				_, _ = io.WriteString(w, `        <h2 class="muted">Before the first scene</h2>
`)
			}
			for _, block := range group.Blocks {
				writeBlockEditor(w, block, data)
			}
			_, _ = io.WriteString(w, `      </section>
`)
		}
		_, _ = io.WriteString(w, `      <section class="panel">
        <h2>Add block</h2>
        <form method="post" action="/admin/episodes/`+esc(data.Episode.ID)+`/blocks" class="stack">
          <select name="type">`+selectOptions(data.Types, "scene")+`</select>
          <select name="audience">`+selectOptions(data.Audiences, "both")+`</select>
          <select name="mode">`+selectOptions(data.Modes, "display")+`</select>
          <input name="title" placeholder="Title" maxlength="140"/>
          <textarea name="body" rows="4" placeholder="Body"></textarea>
          <textarea name="metadata" rows="2" placeholder="Metadata (JSON object)"></textarea>
          <button type="submit" class="primary">Add block</button>
        </form>
      </section>
`)
		writePageEnd(w)
		return nil
	})
}

func writeBlockEditor(w io.Writer, block BlockView, data EpisodeEditorData) {
	id := esc(block.ID)
	_, _ = io.WriteString(w, `        <article class="block block-`+esc(block.Type)+`" id="block-`+id+`">
          <header><span class="tag">`+esc(block.Type)+`</span> <span class="muted">`+esc(block.Audience)+` · `+esc(block.Mode)+` · #`+itoa(block.SortOrder)+`</span></header>
`)
	if block.ImageURL != "" {
		_, _ = io.WriteString(w, `          <img src="`+esc(block.ImageURL)+`" alt="" class="block-image"/>
`)
	}
	if block.MetaError != "" {
		_, _ = io.WriteString(w, `          <p class="error">Metadata is not valid JSON: `+esc(block.MetaError)+`</p>
`)
	}
	_, _ = io.WriteString(w, `          <form method="post" action="/admin/blocks/`+id+`/update" class="stack">
            <select name="type">`+selectOptions(data.Types, block.Type)+`</select>
            <select name="audience">`+selectOptions(data.Audiences, block.Audience)+`</select>
            <select name="mode">`+selectOptions(data.Modes, block.Mode)+`</select>
            <input name="title" value="`+esc(block.Title)+`" maxlength="140"/>
            <textarea name="body" rows="4">`+esc(block.Body)+`</textarea>
            <textarea name="metadata" rows="2">`+esc(block.Metadata)+`</textarea>
            <button type="submit" class="secondary">Save</button>
          </form>
          <div class="row">
            <form method="post" action="/admin/blocks/`+id+`/move"><input type="hidden" name="direction" value="up"/><button type="submit">Up</button></form>
            <form method="post" action="/admin/blocks/`+id+`/move"><input type="hidden" name="direction" value="down"/><button type="submit">Down</button></form>
            <form method="post" action="/admin/blocks/`+id+`/image" enctype="multipart/form-data"><input type="file" name="image" accept="image/*" required/><button type="submit">Upload image</button></form>
            <form method="post" action="/admin/blocks/`+id+`/delete"><button type="submit" class="danger">Delete</button></form>
          </div>
        </article>
`)
}
