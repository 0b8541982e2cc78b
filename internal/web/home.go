package web

import (
	"context"
	"io"

	"github.com/a-h/templ"
)

// Home is the dashboard: tile counts, open sessions and the join entry point.
func Home(data DashboardData) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		writePageStart(w, "Dashboard")
		_, _ = io.WriteString(w, `      <header class="hero">
        <span class="tag">Neweyes Online</span>
        <h1>Run the table, not the paperwork.</h1>
`)
		if data.SignedIn {
			_, _ = io.WriteString(w, `        <p>Signed in as `+esc(data.UserName)+`.</p>
`)
		} else {
			_, _ = io.WriteString(w, `        <p>Sign in through your identity provider to run or join a session.</p>
`)
		}
		_, _ = io.WriteString(w, `      </header>
`)
		writeFlash(w, data.Flash)

		_, _ = io.WriteString(w, `      <section class="tiles">
`)
		for _, tile := range data.Tiles {
			_, _ = io.WriteString(w, `        <a class="tile" href="`+esc(tile.Href)+`"><span class="tile-value">`+esc(tile.Value)+`</span><span class="tile-label">`+esc(tile.Label)+`</span></a>
`)
		}
		_, _ = io.WriteString(w, `      </section>

      <section class="panel">
        <h2>Join a session</h2>
        <form method="post" action="/join" class="join-form">
          <input name="code" placeholder="Join code" autocomplete="off" maxlength="6" required/>
          <button type="submit" class="secondary">Join</button>
        </form>
      </section>
`)

		if data.CanCreate && len(data.Episodes) > 0 {
			_, _ = io.WriteString(w, `
      <section class="panel">
        <h2>Start a session</h2>
        <form id="createSession" class="join-form">
          <input name="name" placeholder="Session name" required/>
          <select name="episode_id">`)
			for _, episode := range data.Episodes {
				_, _ = io.WriteString(w, `<option value="`+esc(episode.ID)+`">`+esc(episode.Title)+`</option>`)
			}
			_, _ = io.WriteString(w, `</select>
          <button type="submit" class="primary">Create</button>
        </form>
        <div id="createResult" class="result"></div>
      </section>
`)
		}

		if len(data.Sessions) > 0 {
			_, _ = io.WriteString(w, `
      <section class="panel">
        <h2>Sessions</h2>
        <ul class="session-list">
`)
			for _, session := range data.Sessions {
				_, _ = io.WriteString(w, `          <li><strong>`+esc(session.Name)+`</strong> <code>`+esc(session.JoinCode)+`</code> `+esc(session.Episode))
				if session.CanRun {
					_, _ = io.WriteString(w, ` <a href="/run/`+esc(session.ID)+`">Run</a>`)
				}
				_, _ = io.WriteString(w, `</li>
`)
			}
			_, _ = io.WriteString(w, `        </ul>
      </section>
`)
		}

		if data.IsAdmin {
			_, _ = io.WriteString(w, `
      <nav class="panel"><a href="/admin/episodes">Manage episodes</a></nav>
`)
		}

		_, _ = io.WriteString(w, `
    <script>
      const createForm = document.getElementById("createSession");
      if (createForm) {
        const createResult = document.getElementById("createResult");
        createForm.addEventListener("submit", async (event) => {
          event.preventDefault();
          createResult.textContent = "Creating session...";
          const res = await fetch("/api/sessions", {
            method: "POST",
            headers: { "Content-Type": "application/json" },
            body: JSON.stringify({
              name: createForm.elements.name.value.trim(),
              episode_id: createForm.elements.episode_id.value
            })
          });
          const data = await res.json();
          if (!res.ok) {
            createResult.textContent = data.error || "Failed to create session.";
            return;
          }
          window.location.href = "/run/" + data.session_id;
        });
      }
    </script>
`)
		writePageEnd(w)
		return nil
	})
}

func JoinView(data JoinData) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		writePageStart(w, "Join")
		_, _ = io.WriteString(w, `      <header class="hero">
        <span class="tag">Join</span>
        <h1>Enter your table's code.</h1>
      </header>
`)
		writeFlash(w, data.Flash)
		writeError(w, data.Error)
		_, _ = io.WriteString(w, `      <section class="panel">
        <form method="post" action="/join" class="join-form">
          <input name="code" value="`+esc(data.Code)+`" placeholder="Join code" autocomplete="off" maxlength="6" required/>
          <button type="submit" class="primary">Join session</button>
        </form>
      </section>
`)
		writePageEnd(w)
		return nil
	})
}
