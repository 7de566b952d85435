package generator

const pageHTML = `<!DOCTYPE html>
<html lang="en">
<head>
   <meta charset="UTF-8"/>
   <meta name="viewport" content="width=device-width, initial-scale=1"/>
   <title>{{ .Title }}</title>
   <link rel="stylesheet" href="https://unpkg.com/maplibre-gl@4.7.1/dist/maplibre-gl.css" />
   <script src="https://unpkg.com/maplibre-gl@4.7.1/dist/maplibre-gl.js"></script>
   <style>
      :root {
         --bg-color: #121212;
         --text-color: #e0e0e0;
         --card-bg: #1e1e1e;
         --card-border: #333;
         --header-bg: #2d2d45;
         --header-border: #444466;
         --warning: #ffaa33;
         --error: #ff4444;
      }
      html { background-color: #121212; }
      body {
         font-family: Arial, sans-serif;
         margin: 0;
         background-color: var(--bg-color);
         color: var(--text-color);
      }
      #map { position: absolute; top: 0; bottom: 0; width: 100%; }
      .panel {
         position: absolute; top: 10px; left: 10px; z-index: 2;
         background-color: var(--card-bg); border: 1px solid var(--card-border);
         border-radius: 5px; padding: 10px 14px; width: 300px;
      }
      .panel h1 { font-size: 1.1em; margin: 0 0 8px 0; }
      .slot { margin-bottom: 10px; }
      .slot label { display: block; font-size: 0.85em; margin-bottom: 3px; }
      .slot select { width: 100%; margin-bottom: 4px; background: #252525; color: var(--text-color); border: 1px solid var(--card-border); }
      .slot input[type=range] { width: 100%; }
      .legend img { max-width: 100%; margin-top: 4px; }
      .timeline {
         position: absolute; bottom: 24px; left: 50%; transform: translateX(-50%); z-index: 2;
         background-color: var(--header-bg); border: 1px solid var(--header-border);
         border-radius: 5px; padding: 8px 14px; display: flex; align-items: center; gap: 10px;
         width: 60%;
      }
      .timeline input { flex: 1; }
      .timeline button {
         background: var(--card-bg); color: var(--text-color);
         border: 1px solid var(--card-border); border-radius: 3px; padding: 4px 10px; cursor: pointer;
      }
      #time-label { min-width: 170px; font-family: monospace; }
      #status { font-size: 0.8em; min-height: 1em; }
      #status.warning { color: var(--warning); }
      #status.error { color: var(--error); }
      .updated { font-size: 0.7em; color: #888; margin-top: 6px; }
   </style>
</head>
<body>
   <div id="map"></div>
   <div class="panel">
      <h1>{{ .Title }}</h1>
      {{ range $i := slots .Slots }}
      <div class="slot" data-slot="{{ $i }}">
         <label for="layer-{{ $i }}">Layer {{ $i }}</label>
         <select id="layer-{{ $i }}" class="layer-select">
            <option value="{{ $.NoneTitle }}">{{ $.NoneTitle }}</option>
            {{ range $.Titles }}<option value="{{ . }}">{{ . }}</option>{{ end }}
         </select>
         <select id="style-{{ $i }}" class="style-select" disabled></select>
         <input id="opacity-{{ $i }}" class="opacity" type="range" min="0" max="1" step="0.05" value="{{ $.DefaultOpacity }}"/>
         <div class="legend" id="legend-{{ $i }}"></div>
      </div>
      {{ end }}
      <div id="status"></div>
      <div class="updated">Page generated {{ .Updated }}</div>
   </div>
   <div class="timeline">
      <button id="play" disabled>Play</button>
      <input id="slider" type="range" min="0" max="0" value="0" disabled/>
      <span id="time-label">no layer selected</span>
   </div>
   <script>
      const socketURL = {{ .SocketURL }};
      const slotCount = {{ .Slots }};
      const noneTitle = {{ .NoneTitle }};
      let titles = {{ toJSON .Titles }};
      let times = [];
      let mapReady = false;
      let pendingTiles = [];
      let socket = null;

      const map = new maplibregl.Map({
         container: 'map',
         style: {
            version: 8,
            sources: {
               osm: {
                  type: 'raster',
                  tiles: ['https://tile.openstreetmap.org/{z}/{x}/{y}.png'],
                  tileSize: 256,
                  attribution: '&copy; OpenStreetMap contributors'
               }
            },
            layers: [{ id: 'osm', type: 'raster', source: 'osm' }]
         },
         center: {{ toJSON .Center }},
         zoom: {{ .Zoom }}
      });
      map.on('load', function () {
         mapReady = true;
         pendingTiles.forEach(setTile);
         pendingTiles = [];
      });

      function send(msg) {
         if (socket && socket.readyState === WebSocket.OPEN) {
            socket.send(JSON.stringify(msg));
         }
      }

      function status(text, level) {
         const el = document.getElementById('status');
         el.textContent = text || '';
         el.className = level || '';
      }

      function layerId(slot) { return 'wms-' + slot; }

      function setTile(tile) {
         if (!mapReady) {
            pendingTiles.push(tile);
            return;
         }
         const id = layerId(tile.slot);
         const source = map.getSource(id);
         if (!tile.visible) {
            if (map.getLayer(id)) map.removeLayer(id);
            if (source) map.removeSource(id);
            return;
         }
         if (source) {
            source.setTiles([tile.url]);
            map.setPaintProperty(id, 'raster-opacity', tile.opacity);
            return;
         }
         map.addSource(id, { type: 'raster', tiles: [tile.url], tileSize: 256 });
         let before;
         for (let s = tile.slot + 1; s < slotCount; s++) {
            if (map.getLayer(layerId(s))) { before = layerId(s); break; }
         }
         map.addLayer({ id: id, type: 'raster', source: id, paint: { 'raster-opacity': tile.opacity } }, before);
      }

      function fillTitles() {
         for (let s = 0; s < slotCount; s++) {
            const select = document.getElementById('layer-' + s);
            const current = select.value;
            select.innerHTML = '';
            [noneTitle].concat(titles).forEach(function (t) {
               const opt = document.createElement('option');
               opt.value = t;
               opt.textContent = t;
               select.appendChild(opt);
            });
            select.value = titles.includes(current) ? current : noneTitle;
         }
      }

      function fillStyles(slot, styles, selected) {
         const select = document.getElementById('style-' + slot);
         select.innerHTML = '';
         (styles || []).forEach(function (st) {
            const opt = document.createElement('option');
            opt.value = st.name;
            opt.textContent = st.name;
            opt.disabled = !st.selectable;
            select.appendChild(opt);
         });
         select.value = selected || '';
         select.disabled = !styles || styles.length === 0;
      }

      function setLegend(slot, url) {
         const el = document.getElementById('legend-' + slot);
         el.innerHTML = '';
         if (url && url !== 'none') {
            const img = document.createElement('img');
            img.src = url;
            img.alt = 'legend';
            el.appendChild(img);
         }
      }

      function setTime(p) {
         const slider = document.getElementById('slider');
         slider.max = Math.max(p.count - 1, 0);
         slider.value = p.index;
         slider.disabled = p.count === 0;
         document.getElementById('play').disabled = p.count === 0;
         document.getElementById('time-label').textContent = p.time;
      }

      function resetTimeline() {
         times = [];
         const slider = document.getElementById('slider');
         slider.max = 0;
         slider.value = 0;
         slider.disabled = true;
         const play = document.getElementById('play');
         play.disabled = true;
         play.textContent = 'Play';
         document.getElementById('time-label').textContent = 'no layer selected';
      }

      const handlers = {
         'session.snapshot': function (p) {
            p.slots.forEach(function (s) {
               document.getElementById('layer-' + s.slot).value = s.title;
               fillStyles(s.slot, s.styles, s.style);
               setLegend(s.slot, s.legendUrl);
            });
            times = p.times || [];
            if (times.length > 0) {
               setTime({ time: p.time, index: p.index, count: times.length });
            } else {
               resetTimeline();
            }
            document.getElementById('play').textContent = p.status === 'playing' ? 'Stop' : 'Play';
            (p.tiles || []).forEach(setTile);
         },
         'capabilities.ready': function (p) {
            titles = p.titles || [];
            fillTitles();
            status('');
         },
         'capabilities.unauthorized': function (p) {
            status('API request failed for the ' + p.bundle + ' bundle, a valid API key is required', 'error');
         },
         'layer.changed': function (p) {
            document.getElementById('layer-' + p.slot).value = p.title;
            fillStyles(p.slot, p.styles, p.style);
            setLegend(p.slot, p.legendUrl);
         },
         'layer.cleared': function (p) {
            document.getElementById('layer-' + p.slot).value = noneTitle;
            fillStyles(p.slot, [], '');
            setLegend(p.slot, '');
         },
         'layers.none': resetTimeline,
         'time.changed': setTime,
         'time.preview': function (p) {
            document.getElementById('time-label').textContent = p.time;
         },
         'tile.updated': setTile,
         'time.misaligned': function (p) {
            status('Layer ' + p.slot + ' has no data for ' + p.requested + ', showing ' + p.showing, 'warning');
         },
         'playback.changed': function (p) {
            document.getElementById('play').textContent = p.playing ? 'Stop' : 'Play';
         },
         'input.rejected': function (p) {
            status(p.input + ': ' + p.error, 'warning');
         }
      };

      function connect() {
         const url = new URL(socketURL, window.location.href);
         if (url.protocol === 'http:') url.protocol = 'ws:';
         if (url.protocol === 'https:') url.protocol = 'wss:';
         socket = new WebSocket(url);
         socket.onmessage = function (msg) {
            const ev = JSON.parse(msg.data);
            const handler = handlers[ev.type];
            if (handler) handler(ev.payload || {});
         };
         socket.onclose = function () {
            status('Disconnected, retrying...', 'warning');
            setTimeout(connect, 2000);
         };
         socket.onopen = function () { status(''); };
      }

      for (let s = 0; s < slotCount; s++) {
         document.getElementById('layer-' + s).addEventListener('change', function (e) {
            send({ type: 'select-layer', slot: s, title: e.target.value });
         });
         document.getElementById('style-' + s).addEventListener('change', function (e) {
            send({ type: 'select-style', slot: s, style: e.target.value });
         });
         document.getElementById('opacity-' + s).addEventListener('input', function (e) {
            send({ type: 'set-opacity', slot: s, opacity: parseFloat(e.target.value) });
         });
      }
      document.getElementById('slider').addEventListener('input', function (e) {
         send({ type: 'slider-drag', index: parseInt(e.target.value, 10) });
      });
      document.getElementById('slider').addEventListener('change', function (e) {
         send({ type: 'slider-commit', index: parseInt(e.target.value, 10) });
      });
      document.getElementById('play').addEventListener('click', function () {
         send({ type: 'play-toggle' });
      });

      connect();
   </script>
</body>
</html>
`
