package visualizer

import (
	"bytes"
	"encoding/json"
	"html/template"
	"os"
	"path/filepath"

	"github.com/crashgraph/crashgraph/pkg/graph"
)

// The HTML template for D3.js visualization
const d3Template = `<!DOCTYPE html>
<html>
<head>
    <meta charset="utf-8">
    <title>Accident Knowledge Graph</title>
    <script src="https://d3js.org/d3.v7.min.js"></script>
    <style>
        body {
            margin: 0;
            font-family: Arial, sans-serif;
        }
        #graph {
            width: 100%;
            height: 100vh;
            background-color: #f5f5f5;
        }
        .node {
            stroke: #fff;
            stroke-width: 1.5px;
        }
        .link {
            stroke: #999;
            stroke-opacity: 0.6;
        }
        .node-label {
            font-size: 10px;
            pointer-events: none;
        }
        .controls {
            position: absolute;
            top: 10px;
            left: 10px;
            background-color: rgba(255,255,255,0.8);
            padding: 10px;
            border-radius: 5px;
            box-shadow: 0 0 10px rgba(0,0,0,0.1);
        }
    </style>
</head>
<body>
    <div id="graph"></div>
    <div class="controls">
        <h3>Accident Knowledge Graph ({{.Pipeline}})</h3>
        <p>Nodes: {{.NodeCount}}, Edges: {{.EdgeCount}}</p>
        <div>
            <label for="label-filter">Filter by node label:</label>
            <select id="label-filter">
                <option value="all">All Labels</option>
            </select>
        </div>
    </div>

    <script>
        // Graph data
        const graphData = {{.GraphData}};

        // Initialize the force simulation
        const simulation = d3.forceSimulation(graphData.nodes)
            .force("link", d3.forceLink(graphData.edges).id(d => d.id).distance(100))
            .force("charge", d3.forceManyBody().strength(-300))
            .force("center", d3.forceCenter(window.innerWidth / 2, window.innerHeight / 2));

        // Create SVG element
        const svg = d3.select("#graph")
            .append("svg")
            .attr("width", "100%")
            .attr("height", "100%")
            .call(d3.zoom().on("zoom", (event) => {
                g.attr("transform", event.transform);
            }));

        const g = svg.append("g");

        // Define node colors based on ontology labels
        const labels = [...new Set(graphData.nodes.map(node => node.label))];
        const colorScale = d3.scaleOrdinal(d3.schemeCategory10).domain(labels);

        // Add labels to filter dropdown
        labels.forEach(label => {
            d3.select("#label-filter")
                .append("option")
                .attr("value", label)
                .text(label);
        });

        // Create links
        const link = g.append("g")
            .selectAll("line")
            .data(graphData.edges)
            .enter()
            .append("line")
            .attr("class", "link")
            .attr("stroke-width", 1.5);

        // Create nodes; accident case hubs grow with their degree
        const node = g.append("g")
            .selectAll("circle")
            .data(graphData.nodes)
            .enter()
            .append("circle")
            .attr("class", "node")
            .attr("r", d => 6 + Math.sqrt(d.degree) * 2)
            .attr("fill", d => colorScale(d.label))
            .call(d3.drag()
                .on("start", dragstarted)
                .on("drag", dragged)
                .on("end", dragended));

        // Add names next to nodes
        const text = g.append("g")
            .selectAll("text")
            .data(graphData.nodes)
            .enter()
            .append("text")
            .attr("class", "node-label")
            .attr("dx", 12)
            .attr("dy", ".35em")
            .text(d => d.name);

        // Node tooltip
        node.append("title")
            .text(d => d.name + " (" + d.label + ")");

        // Link tooltip
        link.append("title")
            .text(d => d.type + " [" + d.pipeline + "]");

        // Update positions on simulation tick
        simulation.on("tick", () => {
            link
                .attr("x1", d => d.source.x)
                .attr("y1", d => d.source.y)
                .attr("x2", d => d.target.x)
                .attr("y2", d => d.target.y);

            node
                .attr("cx", d => d.x)
                .attr("cy", d => d.y);

            text
                .attr("x", d => d.x)
                .attr("y", d => d.y);
        });

        // Label filter
        d3.select("#label-filter").on("change", function() {
            const selected = this.value;

            if (selected === "all") {
                node.style("visibility", "visible");
                link.style("visibility", "visible");
                text.style("visibility", "visible");
                return;
            }

            // Hide nodes that don't match the selected label
            node.style("visibility", d => d.label === selected ? "visible" : "hidden");

            // Hide names for hidden nodes
            text.style("visibility", d => d.label === selected ? "visible" : "hidden");

            // Keep links that touch at least one visible node
            link.style("visibility", d => {
                const sourceVisible = d.source.label === selected;
                const targetVisible = d.target.label === selected;
                return sourceVisible || targetVisible ? "visible" : "hidden";
            });
        });

        // Drag functions
        function dragstarted(event, d) {
            if (!event.active) simulation.alphaTarget(0.3).restart();
            d.fx = d.x;
            d.fy = d.y;
        }

        function dragged(event, d) {
            d.fx = event.x;
            d.fy = event.y;
        }

        function dragended(event, d) {
            if (!event.active) simulation.alphaTarget(0);
            d.fx = null;
            d.fy = null;
        }
    </script>
</body>
</html>
`

// Renderer writes D3.js-based visualizations of graph snapshots.
type Renderer struct {
	outputPath string
}

// NewRenderer creates a renderer that writes to outputPath.
func NewRenderer(outputPath string) *Renderer {
	return &Renderer{
		outputPath: outputPath,
	}
}

// Render generates a self-contained HTML visualization of the snapshot.
func (r *Renderer) Render(snapshot *graph.Snapshot) error {
	// Create directory if it doesn't exist
	dir := filepath.Dir(r.outputPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	encoded, err := json.Marshal(snapshot)
	if err != nil {
		return err
	}

	tmpl, err := template.New("d3").Parse(d3Template)
	if err != nil {
		return err
	}

	// template.JS keeps the marshaled snapshot a JS object literal; a plain
	// string would be escaped into a quoted string inside the script tag.
	data := struct {
		GraphData template.JS
		Pipeline  string
		NodeCount int
		EdgeCount int
	}{
		GraphData: template.JS(encoded),
		Pipeline:  snapshot.Pipeline,
		NodeCount: len(snapshot.Nodes),
		EdgeCount: len(snapshot.Edges),
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return err
	}

	return os.WriteFile(r.outputPath, buf.Bytes(), 0644)
}
