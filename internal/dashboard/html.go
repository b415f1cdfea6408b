package dashboard

const dashboardHTML = `<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <title>Bestseller Tracker</title>
    <script src="https://cdn.jsdelivr.net/npm/echarts@5/dist/echarts.min.js"></script>
    <style>
        * { margin: 0; padding: 0; box-sizing: border-box; }
        body { font-family: 'Inter', -apple-system, system-ui, sans-serif; background: #0f172a; color: #e2e8f0; min-height: 100vh; display: flex; }
        .sidebar { width: 320px; background: #1e293b; border-right: 1px solid #334155; padding: 1.5rem; display: flex; flex-direction: column; gap: 1rem; }
        .sidebar h1 { font-size: 1.25rem; background: linear-gradient(135deg, #38bdf8, #818cf8); background-clip: text; -webkit-background-clip: text; -webkit-text-fill-color: transparent; }
        .overview .big { font-size: 1.25rem; font-weight: 700; }
        .overview .growth { color: #4ade80; font-size: 0.875rem; font-weight: 600; }
        .overview .muted, .muted { color: #94a3b8; font-size: 0.8rem; }
        label { font-size: 0.75rem; text-transform: uppercase; letter-spacing: 0.05em; color: #94a3b8; display: block; margin-bottom: 0.25rem; }
        select, input { width: 100%; background: #0f172a; color: #e2e8f0; border: 1px solid #475569; border-radius: 6px; padding: 0.4rem; }
        .row { display: flex; gap: 0.5rem; }
        button { background: #334155; color: #e2e8f0; border: 1px solid #475569; border-radius: 6px; padding: 0.4rem 0.8rem; cursor: pointer; }
        button:hover { background: #475569; }
        .selected { color: #33c5ff; font-size: 0.8rem; }
        main { flex: 1; padding: 2rem; overflow-y: auto; }
        .grid { display: grid; grid-template-columns: repeat(3, 1fr); gap: 1rem; margin: 1rem 0 2rem; }
        .card { background: #1e293b; border: 1px solid #334155; border-radius: 12px; padding: 1.25rem; }
        .card .label { font-size: 0.75rem; text-transform: uppercase; letter-spacing: 0.05em; color: #94a3b8; margin-bottom: 0.5rem; }
        .card .value { font-size: 1.75rem; font-weight: 700; color: #f1f5f9; }
        .delta.up { color: #4ade80; } .delta.down { color: #f87171; }
        .warning { display: none; background: #854d0e; color: #fde047; border-radius: 8px; padding: 1rem; margin: 1rem 0; }
        .chart { width: 100%; height: 460px; background: #1e293b; border: 1px solid #334155; border-radius: 12px; margin-bottom: 1.5rem; }
        #dbsize { height: 220px; }
    </style>
</head>
<body>
    <aside class="sidebar">
        <h1>Bestseller Tracker</h1>
        <div class="overview" id="overview"></div>
        <div><label for="category">Category</label><select id="category"></select></div>
        <div><label for="day">Day</label><select id="day"></select></div>
        <div class="row">
            <div><label for="price_min">Price min</label><input id="price_min" type="number" step="0.01"></div>
            <div><label for="price_max">Price max</label><input id="price_max" type="number" step="0.01"></div>
        </div>
        <div class="row">
            <div><label for="from">From</label><input id="from" type="date"></div>
            <div><label for="to">To</label><input id="to" type="date"></div>
        </div>
        <button id="reset">Reset Dates</button>
        <div class="muted" id="available"></div>
        <div class="selected" id="selected"></div>
        <div class="chart" id="dbsize"></div>
    </aside>
    <main>
        <h2 id="title">Category: All records</h2>
        <div class="warning" id="warning"></div>
        <div id="content">
            <div class="grid">
                <div class="card"><div class="label">Average Price</div><div class="value" id="avg_price">-</div><div class="delta" id="delta_price"></div></div>
                <div class="card"><div class="label">Average Rating</div><div class="value" id="avg_rating">-</div><div class="delta" id="delta_rating"></div></div>
                <div class="card"><div class="label">Average Reviews</div><div class="value" id="avg_reviews">-</div><div class="delta" id="delta_reviews"></div></div>
            </div>
            <div class="chart" id="price_hist"></div>
            <div class="chart" id="avg_category" style="height: 700px"></div>
            <div class="chart" id="scatter" style="height: 600px"></div>
            <div class="chart" id="rating_hist"></div>
            <div class="chart" id="reviews_time"></div>
            <div class="chart" id="timeline_reviews"></div>
            <div class="chart" id="timeline_ratings"></div>
            <div class="chart" id="timeline_prices"></div>
        </div>
    </main>
    <script>
        const charts = {};
        let domains = null;
        const $ = (id) => document.getElementById(id);
        const fmt = (v, p) => v === null || v === undefined ? '-' : (p || '') + v.toFixed(2);

        function chart(id) {
            if (!charts[id]) charts[id] = echarts.init($(id), 'dark');
            return charts[id];
        }

        function fill(select, values, keep) {
            select.innerHTML = '';
            values.forEach(v => { const o = document.createElement('option'); o.value = v === 'All' ? '' : v; o.textContent = v; select.appendChild(o); });
            if (keep !== undefined) select.value = keep;
        }

        async function loadOptions() {
            const res = await fetch('/api/options');
            const data = await res.json();
            domains = data.domains;
            const ov = data.overview;
            const growth = ov.growth_percent === null ? '' : ' (' + ov.growth_percent.toFixed(2) + '%)';
            $('overview').innerHTML =
                '<div class="big">' + ov.total_records + ' Records</div>' +
                '<div>' + ov.unique_asins + ' unique products</div>' +
                '<div class="growth">+' + ov.added_latest_day + ' records added' + growth + ' latest day</div>' +
                '<div class="muted">Last Update: ' + ov.last_update + '</div>';
            fill($('category'), domains.categories, $('category').value || domains.categories[0]);
            fill($('day'), ['All'].concat(domains.days), $('day').value);
            $('available').textContent = 'Available Dates: ' + domains.first_day + ' to ' + domains.last_day;
            if (!$('from').value) resetDates();
        }

        function resetDates() {
            $('from').value = domains.first_day || '';
            $('to').value = domains.last_day || '';
            $('day').value = '';
            if (domains.price_min !== null) $('price_min').value = domains.price_min;
            if (domains.price_max !== null) $('price_max').value = domains.price_max;
        }

        function query() {
            const q = new URLSearchParams();
            ['category', 'day', 'from', 'to', 'price_min', 'price_max'].forEach(k => { if ($(k).value) q.set(k, $(k).value); });
            return q.toString();
        }

        function setDelta(id, v) {
            const el = $(id);
            if (v === null || v === undefined) { el.textContent = ''; el.className = 'delta'; return; }
            el.textContent = (v >= 0 ? '+' : '') + v.toFixed(2) + '% (24h)';
            el.className = 'delta ' + (v >= 0 ? 'up' : 'down');
        }

        function bars(id, title, bins, fixed) {
            chart(id).setOption({
                title: { text: title }, tooltip: {},
                xAxis: { type: 'category', data: bins.map(b => b.lower.toFixed(fixed)) },
                yAxis: { type: 'value' },
                series: [{ type: 'bar', data: bins.map(b => b.count), barCategoryGap: '5%' }]
            }, true);
        }

        function timeline(id, title, frames, key, max) {
            if (!frames.length) { chart(id).clear(); return; }
            const cats = [...new Set(frames.flatMap(f => f.categories.map(c => c.category)))].sort();
            chart(id).setOption({
                baseOption: {
                    timeline: { axisType: 'category', autoPlay: false, data: frames.map(f => f.day) },
                    title: { text: title }, tooltip: {},
                    xAxis: { type: 'category', data: cats, axisLabel: { rotate: 45 } },
                    yAxis: { type: 'value', min: 0, max: max },
                    grid: { bottom: 140 },
                    series: [{ type: 'bar' }]
                },
                options: frames.map(f => {
                    const byCat = Object.fromEntries(f.categories.map(c => [c.category, c[key]]));
                    return { series: [{ data: cats.map(c => byCat[c] === undefined ? null : byCat[c]) }] };
                })
            }, true);
        }

        function render(r) {
            const m = r.metrics;
            $('selected').textContent = 'Selected Records: ' + m.selected;
            $('avg_price').textContent = fmt(m.current.price, '€');
            $('avg_rating').textContent = fmt(m.current.rating);
            $('avg_reviews').textContent = fmt(m.current.reviews);
            setDelta('delta_price', m.delta_price);
            setDelta('delta_rating', m.delta_rating);
            setDelta('delta_reviews', m.delta_reviews);

            const c = r.charts;
            const label = (r.selection.category || 'All records') + ' on ' + (r.selection.day || 'All');
            bars('price_hist', 'Price Distribution for ' + label, c.price_histogram || [], 0);
            bars('rating_hist', 'Rating Distribution for ' + label, c.rating_histogram || [], 1);

            const avg = (c.avg_price_per_category || []).slice().reverse();
            chart('avg_category').setOption({
                title: { text: 'Average Price per Category' }, tooltip: {},
                grid: { left: 200 },
                xAxis: { type: 'value' },
                yAxis: { type: 'category', data: avg.map(a => a.category) },
                series: [{ type: 'bar', data: avg.map(a => a.value), label: { show: true, position: 'right', formatter: p => p.value.toFixed(2) + '€' } }]
            }, true);

            const groups = {};
            (c.scatter || []).forEach(p => (groups[p.category] = groups[p.category] || []).push([p.price, p.rating, p.title]));
            chart('scatter').setOption({
                title: { text: 'Price vs. Rating' }, legend: { type: 'scroll', bottom: 0 },
                tooltip: { formatter: p => p.data[2] + '<br>' + p.data[0] + ' / ' + p.data[1] },
                xAxis: { type: 'value', name: 'Price' }, yAxis: { type: 'value', name: 'Rating', min: 0, max: 5.1 },
                series: Object.keys(groups).map(k => ({ name: k, type: 'scatter', symbolSize: 6, data: groups[k] }))
            }, true);

            const rv = c.reviews_over_time || [];
            chart('reviews_time').setOption({
                title: { text: 'Reviews Over Time' }, tooltip: { trigger: 'axis' },
                xAxis: { type: 'category', data: rv.map(p => p.day) }, yAxis: { type: 'value' },
                series: [{ type: 'line', data: rv.map(p => p.value) }]
            }, true);

            const db = c.database_size || [];
            chart('dbsize').setOption({
                title: { text: 'Database Size (Hourly)', textStyle: { fontSize: 12 } }, tooltip: { trigger: 'axis' },
                xAxis: { type: 'time' }, yAxis: { type: 'value' },
                series: [{ type: 'line', showSymbol: false, data: db.map(p => [p.time, p.value]) }]
            }, true);

            const frames = c.timeline || [];
            timeline('timeline_reviews', 'Average Reviews per Category', frames, 'reviews', 80000);
            timeline('timeline_ratings', 'Average Ratings per Category', frames, 'rating', 5.1);
            timeline('timeline_prices', 'Average Prices per Category', frames, 'price', 300);
        }

        async function refresh() {
            $('title').textContent = 'Category: ' + ($('category').value || 'All records');
            const res = await fetch('/api/report?' + query());
            const body = await res.json();
            if (res.status === 422 || body.error) {
                $('warning').textContent = body.warning || body.error;
                $('warning').style.display = 'block';
                $('content').style.display = 'none';
                return;
            }
            $('warning').style.display = 'none';
            $('content').style.display = 'block';
            render(body);
            Object.values(charts).forEach(c => c.resize());
        }

        ['category', 'day', 'from', 'to', 'price_min', 'price_max'].forEach(id => $(id).addEventListener('change', refresh));
        $('reset').addEventListener('click', () => { resetDates(); refresh(); });
        window.addEventListener('resize', () => Object.values(charts).forEach(c => c.resize()));

        loadOptions().then(refresh).catch(err => {
            $('warning').textContent = 'Failed to load dashboard: ' + err;
            $('warning').style.display = 'block';
        });
    </script>
</body>
</html>`
