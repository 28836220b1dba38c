package mcp

import "github.com/mark3labs/mcp-go/mcp"

// listDevicesTool defines the list_devices MCP tool.
var listDevicesTool = mcp.NewTool("list_devices",
	mcp.WithDescription("List the devices in the telemetry file with their active flag, active channel count and average activity per time slice."),
	mcp.WithString("scheme",
		mcp.Description("Which telemetry file to read (default basic)"),
		mcp.Enum("basic", "phased"),
	),
)

// getPairStatsTool defines the get_pair_stats MCP tool.
var getPairStatsTool = mcp.NewTool("get_pair_stats",
	mcp.WithDescription("Pair consecutive devices and report their average activity, difference and synchronization level."),
	mcp.WithNumber("slice",
		mcp.Description("Time slice 0-4 (default 0)"),
	),
)

// getSceneTool defines the get_scene MCP tool.
var getSceneTool = mcp.NewTool("get_scene",
	mcp.WithDescription("Compute the sphere scene for one device and time slice: lit markers with their colors and the connection lines between highly active channels."),
	mcp.WithNumber("device",
		mcp.Description("Device id (default: first device in the file)"),
	),
	mcp.WithNumber("slice",
		mcp.Description("Time slice 0-4 (default 0)"),
	),
)

// getParseReportTool defines the get_parse_report MCP tool.
var getParseReportTool = mcp.NewTool("get_parse_report",
	mcp.WithDescription("Report how many lines the telemetry parser read and which lines it skipped and why."),
	mcp.WithString("scheme",
		mcp.Description("Which telemetry file to read (default basic)"),
		mcp.Enum("basic", "phased"),
	),
)
