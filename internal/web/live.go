package web

import (
	"context"
	"encoding/json"
	"io"

	"github.com/a-h/templ"
)

// liveScript keeps the countdown formula in step with the server: a running
// timer shows remaining minus whole seconds elapsed since updated_at, using
// the clock offset measured from each snapshot's server_time.
const liveScript = `
      const sessionID = document.body.dataset.session;
      let mirror = null;
      let skewMs = 0;
      function countdown() {
        if (!mirror) return 0;
        if (mirror.timer_status !== "running") return Math.max(0, mirror.remaining_seconds);
        const elapsed = Math.max(0, Math.floor((Date.now() + skewMs - Date.parse(mirror.updated_at)) / 1000));
        return Math.max(0, mirror.remaining_seconds - elapsed);
      }
      function formatClock(total) {
        const m = Math.floor(total / 60);
        const s = total % 60;
        return m + ":" + String(s).padStart(2, "0");
      }
      function tick() {
        const el = document.getElementById("timer");
        if (el) el.textContent = formatClock(countdown());
      }
      setInterval(tick, 250);
      async function post(path, body) {
        const res = await fetch("/api/sessions/" + sessionID + path, {
          method: "POST",
          headers: { "Content-Type": "application/json" },
          body: JSON.stringify(body || {})
        });
        const data = await res.json().catch(() => ({}));
        const status = document.getElementById("status");
        if (status) status.textContent = res.ok ? "" : (data.error || "Request failed.");
        return res.ok;
      }
      function connect(onMessage) {
        const scheme = location.protocol === "https:" ? "wss://" : "ws://";
        const ws = new WebSocket(scheme + location.host + "/ws/sessions/" + sessionID);
        ws.onmessage = (event) => {
          const msg = JSON.parse(event.data);
          if (msg.type === "state") {
            mirror = msg.state;
            skewMs = Date.parse(msg.server_time) - Date.now();
            tick();
          }
          onMessage(msg);
        };
        ws.onclose = () => setTimeout(() => connect(onMessage), 2000);
      }
`

func PlayerView(data PlayerPageData) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		writePageStart(w, data.SessionName)
		_, _ = io.WriteString(w, `      <div id="live" data-player="`+esc(data.PlayerID)+`"></div>
      <header class="hero">
        <span class="tag">`+esc(data.SessionName)+`</span>
        <h1 id="timer">0:00</h1>
        <div class="progress"><div id="encounter" class="progress-bar" style="width:0%"></div></div>
        <p class="announcement">`+esc(data.Announcement)+`</p>
      </header>
      <section class="panel" id="roll" hidden>
        <h2 id="rollPrompt"></h2>
        <form id="rollForm" class="join-form" hidden>
          <input name="value" type="number" min="1" required/>
          <button type="submit" class="primary">Submit roll</button>
        </form>
        <button id="rollButton" class="primary" hidden>Roll</button>
        <p id="rollSubmitted" hidden></p>
      </section>
      <section class="panel" id="presented" hidden></section>
      <p id="status" class="error"></p>
`)
		_, _ = io.WriteString(w, `    <script>
      document.body.dataset.session = `+jsString(data.SessionID)+`;`+liveScript+`
      const rollPanel = document.getElementById("roll");
      const rollForm = document.getElementById("rollForm");
      const rollButton = document.getElementById("rollButton");
      const rollSubmitted = document.getElementById("rollSubmitted");
      function renderRoll(roll) {
        rollPanel.hidden = roll.affordance === "none";
        document.getElementById("rollPrompt").textContent = (roll.prompt || "Roll") + (roll.die ? " (" + roll.die + ")" : "");
        rollForm.hidden = roll.affordance !== "input";
        rollButton.hidden = roll.affordance !== "roll_button";
        rollSubmitted.hidden = roll.affordance !== "submitted";
        if (roll.affordance === "submitted") rollSubmitted.textContent = "You rolled " + roll.value + ".";
      }
      function renderBlock(block) {
        const panel = document.getElementById("presented");
        panel.replaceChildren();
        if (!block) { panel.hidden = true; return; }
        const title = document.createElement("h2");
        title.textContent = block.title;
        panel.appendChild(title);
        if (block.image_url) {
          const img = document.createElement("img");
          img.src = block.image_url;
          img.className = "block-image";
          panel.appendChild(img);
        }
        const body = document.createElement("p");
        body.textContent = block.body;
        panel.appendChild(body);
        panel.hidden = false;
      }
      rollForm.addEventListener("submit", async (event) => {
        event.preventDefault();
        await post("/roll/results", { value: Number(rollForm.elements.value.value) });
      });
      rollButton.addEventListener("click", () => post("/roll/digital"));
      connect((msg) => {
        if (msg.type === "state") {
          const pct = msg.view.encounter_percent;
          document.getElementById("encounter").style.width = (pct == null ? 0 : pct) + "%";
          renderRoll(msg.view.roll);
        } else if (msg.type === "block") {
          renderBlock(msg.block);
        }
      });
    </script>
`)
		writePageEnd(w)
		return nil
	})
}

// StorytellerView is the control console for one session.
func StorytellerView(data StorytellerPageData) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		writePageStart(w, data.SessionName)
		_, _ = io.WriteString(w, `      <header class="hero">
        <span class="tag">Storyteller</span>
        <h1>`+esc(data.SessionName)+` <code>`+esc(data.JoinCode)+`</code></h1>
        <h2 id="timer">0:00</h2>
        <p id="encounterLabel">Encounter 0 / 0</p>
      </header>
`)
		writeFlash(w, data.Flash)
		_, _ = io.WriteString(w, `      <p id="status" class="error"></p>
      <section class="panel">
        <h2>Timer</h2>
        <div class="row">
          <button data-post="/timer/start">Start</button>
          <button data-post="/timer/pause">Pause</button>
          <button data-post="/timer/reset">Reset</button>
          <button data-post="/timer/extend" data-body='{"seconds":`+itoa(data.ExtendBy)+`}'>+`+itoa(data.ExtendBy/60)+` min</button>
          <form id="durationForm" class="join-form"><input name="seconds" type="number" min="0" placeholder="Duration (s)"/><button type="submit">Set</button></form>
        </div>
      </section>
      <section class="panel">
        <h2>Encounter</h2>
        <div class="row">
          <button data-post="/encounter/advance" data-body='{"step":-1}'>-1</button>
          <button data-post="/encounter/advance" data-body='{"step":1}'>+1</button>
          <form id="totalForm" class="join-form"><input name="total" type="number" min="0" placeholder="Total"/><button type="submit">Set total</button></form>
        </div>
      </section>
      <section class="panel">
        <h2>Roll</h2>
        <form id="rollForm" class="stack">
          <select name="die"><option value="">No die</option>`+selectOptions(data.Dice, "d20")+`</select>
          <input name="prompt" placeholder="Prompt"/>
          <select name="target"><option value="all">Everyone</option>`)
		for _, player := range data.Players {
			_, _ = io.WriteString(w, `<option value="`+esc(player)+`">`+esc(player)+`</option>`)
		}
		_, _ = io.WriteString(w, `</select>
          <button type="submit" class="primary">Open roll</button>
        </form>
        <button data-post="/roll/close">Close roll</button>
        <table class="table"><thead><tr><th>Player</th><th>Mode</th><th>Result</th></tr></thead><tbody id="results">
`)
		for _, player := range data.Players {
			p := esc(player)
			_, _ = io.WriteString(w, `          <tr data-player="`+p+`"><td>`+p+`</td>
            <td><select class="mode" data-player="`+p+`"><option value="player">Player enters</option><option value="digital">Digital roll</option></select></td>
            <td class="result">-</td></tr>
`)
		}
		_, _ = io.WriteString(w, `        </tbody></table>
      </section>
      <section class="panel">
        <h2>Announcement</h2>
        <form id="announceForm" class="stack"><textarea name="text" rows="2">`+esc(data.Announcement)+`</textarea><button type="submit">Update</button></form>
      </section>
      <section class="panel">
        <h2>Present</h2>
        <button id="clearPresented">Clear</button>
`)
		for _, group := range data.Groups {
			if group.Scene != nil {
				writePresentRow(w, *group.Scene)
			}
			for _, block := range group.Blocks {
				writePresentRow(w, block)
			}
		}
		_, _ = io.WriteString(w, `      </section>
    <script>
      document.body.dataset.session = `+jsString(data.SessionID)+`;`+liveScript+`
      document.querySelectorAll("[data-post]").forEach((el) => {
        el.addEventListener("click", () => post(el.dataset.post, el.dataset.body ? JSON.parse(el.dataset.body) : {}));
      });
      document.getElementById("durationForm").addEventListener("submit", (e) => {
        e.preventDefault();
        post("/timer/duration", { seconds: Number(e.target.elements.seconds.value) });
      });
      document.getElementById("totalForm").addEventListener("submit", (e) => {
        e.preventDefault();
        post("/encounter/total", { total: Number(e.target.elements.total.value) });
      });
      document.getElementById("rollForm").addEventListener("submit", (e) => {
        e.preventDefault();
        const f = e.target.elements;
        post("/roll/open", { die: f.die.value, prompt: f.prompt.value, target: f.target.value });
      });
      document.querySelectorAll("select.mode").forEach((el) => {
        el.addEventListener("change", () => post("/roll/mode", { player_id: el.dataset.player, mode: el.value }));
      });
      document.getElementById("announceForm").addEventListener("submit", (e) => {
        e.preventDefault();
        post("/announcement", { text: e.target.elements.text.value });
      });
      document.querySelectorAll("[data-present]").forEach((el) => {
        el.addEventListener("click", () => post("/present", { block_id: el.dataset.present }));
      });
      document.getElementById("clearPresented").addEventListener("click", async () => {
        await fetch("/api/sessions/" + sessionID + "/present", { method: "DELETE" });
      });
      connect((msg) => {
        if (msg.type !== "state") return;
        const st = msg.state;
        document.getElementById("encounterLabel").textContent = "Encounter " + st.encounter_current + " / " + st.encounter_total;
        document.querySelectorAll("#results tr").forEach((row) => {
          const result = (st.roll_results || {})[row.dataset.player];
          const current = result && result.round_id === st.roll_round_id;
          row.querySelector(".result").textContent = current ? result.value + " (" + result.source + ")" : "-";
          const mode = (st.roll_modes || {})[row.dataset.player] || "player";
          row.querySelector("select.mode").value = mode;
        });
        document.querySelectorAll("[data-present]").forEach((el) => {
          el.classList.toggle("active", el.dataset.present === st.presented_block_id);
        });
      });
    </script>
`)
		writePageEnd(w)
		return nil
	})
}

func writePresentRow(w io.Writer, block BlockView) {
	if block.Audience == "storyteller" {
		_, _ = io.WriteString(w, `        <div class="present-row muted">`+esc(block.Type)+` · `+esc(block.Title)+` (storyteller only)</div>
`)
		return
	}
	_, _ = io.WriteString(w, `        <div class="present-row"><button data-present="`+esc(block.ID)+`">Present</button> `+esc(block.Type)+` · `+esc(block.Title)+`</div>
`)
}

func jsString(value string) string {
	data, err := json.Marshal(value)
	if err != nil {
		return `""`
	}
	return string(data)
}
