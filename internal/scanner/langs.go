package scanner

import "regexp"

// pack describes how to find environment variable references in one
// language family: match patterns, comment markers to skip, and
// builtin names that are never real environment dependencies.
type pack struct {
	patterns   []*regexp.Regexp
	deny       map[string]struct{}
	denyPrefix string
	isComment  func(trimmed string) bool
}

func denySet(names ...string) map[string]struct{} {
	m := make(map[string]struct{}, len(names))
	for _, n := range names {
		m[n] = struct{}{}
	}
	return m
}

func hashComment(trimmed string) bool {
	return len(trimmed) > 0 && trimmed[0] == '#'
}

var javascriptPack = pack{
	patterns: []*regexp.Regexp{
		regexp.MustCompile(`process\.env\.(\w+)`),
		regexp.MustCompile(`process\.env\[["'](\w+)["']\]`),
		regexp.MustCompile(`Deno\.env\.get\(["'](\w+)["']\)`),
		regexp.MustCompile(`import\.meta\.env\.(\w+)`),
	},
}

var pythonPack = pack{
	patterns: []*regexp.Regexp{
		regexp.MustCompile(`os\.environ\[["'](\w+)["']\]`),
		regexp.MustCompile(`os\.environ\.get\(["'](\w+)["']`),
		regexp.MustCompile(`os\.getenv\(["'](\w+)["']`),
		regexp.MustCompile(`environ\[["'](\w+)["']\]`),
	},
}

var rustPack = pack{
	patterns: []*regexp.Regexp{
		regexp.MustCompile(`env!\s*\(\s*"(\w+)"\s*\)`),
		regexp.MustCompile(`std::env::var\s*\(\s*"(\w+)"\s*\)`),
		regexp.MustCompile(`env::var\s*\(\s*"(\w+)"\s*\)`),
		regexp.MustCompile(`std::env::var_os\s*\(\s*"(\w+)"\s*\)`),
		regexp.MustCompile(`env::var_os\s*\(\s*"(\w+)"\s*\)`),
	},
}

var goPack = pack{
	patterns: []*regexp.Regexp{
		regexp.MustCompile(`os\.Getenv\s*\(\s*"(\w+)"\s*\)`),
		regexp.MustCompile(`os\.LookupEnv\s*\(\s*"(\w+)"\s*\)`),
		regexp.MustCompile(`os\.Setenv\s*\(\s*"(\w+)"\s*,`),
	},
}

var javaPack = pack{
	patterns: []*regexp.Regexp{
		regexp.MustCompile(`System\.getenv\s*\(\s*"(\w+)"\s*\)`),
		regexp.MustCompile(`getenv\s*\(\s*\)\.get\s*\(\s*"(\w+)"\s*\)`),
	},
}

var csharpPack = pack{
	patterns: []*regexp.Regexp{
		regexp.MustCompile(`Environment\.GetEnvironmentVariable\s*\(\s*"(\w+)"\s*\)`),
		regexp.MustCompile(`Environment\.SetEnvironmentVariable\s*\(\s*"(\w+)"\s*,`),
	},
}

var rubyPack = pack{
	patterns: []*regexp.Regexp{
		regexp.MustCompile(`ENV\[["'](\w+)["']\]`),
		regexp.MustCompile(`ENV\.fetch\s*\(\s*["'](\w+)["']`),
	},
}

var phpPack = pack{
	patterns: []*regexp.Regexp{
		regexp.MustCompile(`\$_ENV\[["'](\w+)["']\]`),
		regexp.MustCompile(`getenv\s*\(\s*["'](\w+)["']`),
		regexp.MustCompile(`\$_SERVER\[["'](\w+)["']\]`),
	},
}

func cComment(trimmed string) bool {
	if len(trimmed) >= 2 && trimmed[:2] == "//" {
		return true
	}
	return len(trimmed) >= 4 && trimmed[:2] == "/*" && trimmed[len(trimmed)-2:] == "*/"
}

var cPack = pack{
	patterns: []*regexp.Regexp{
		regexp.MustCompile(`getenv\s*\(\s*"(\w+)"\s*\)`),
		regexp.MustCompile(`setenv\s*\(\s*"(\w+)"\s*,`),
		regexp.MustCompile(`GetEnvironmentVariable[AW]?\s*\(\s*"(\w+)"\s*,`),
		regexp.MustCompile(`SetEnvironmentVariable[AW]?\s*\(\s*"(\w+)"\s*,`),
	},
	isComment: cComment,
}

var cppPack = pack{
	patterns: []*regexp.Regexp{
		regexp.MustCompile(`getenv\s*\(\s*"(\w+)"\s*\)`),
		regexp.MustCompile(`std::getenv\s*\(\s*"(\w+)"\s*\)`),
		regexp.MustCompile(`setenv\s*\(\s*"(\w+)"\s*,`),
		regexp.MustCompile(`GetEnvironmentVariable[AW]?\s*\(\s*"(\w+)"\s*,`),
		regexp.MustCompile(`SetEnvironmentVariable[AW]?\s*\(\s*"(\w+)"\s*,`),
		regexp.MustCompile(`boost::this_process::environment\s*\[\s*"(\w+)"\s*\]`),
	},
	isComment: cComment,
}

var shellPack = pack{
	patterns: []*regexp.Regexp{
		regexp.MustCompile(`\$(\w+)`),
		regexp.MustCompile(`\$\{(\w+)\}`),
		regexp.MustCompile(`^\s*export\s+(\w+)`),
		regexp.MustCompile(`\$\{(\w+)[:?+=\-]`),
	},
	deny: denySet(
		"1", "2", "3", "4", "5", "6", "7", "8", "9", "0", "_",
		"PPID", "PWD", "OLDPWD", "REPLY", "UID", "EUID", "GROUPS",
		"BASH", "BASH_VERSION", "BASH_VERSINFO", "SHLVL", "RANDOM",
		"SECONDS", "LINENO", "HISTCMD", "FUNCNAME", "PIPESTATUS", "IFS",
	),
	denyPrefix: "BASH_",
	isComment:  hashComment,
}

var powershellPack = pack{
	patterns: []*regexp.Regexp{
		regexp.MustCompile(`\$env:(\w+)`),
		regexp.MustCompile(`\[Environment\]::GetEnvironmentVariable\s*\(\s*["'](\w+)["']`),
		regexp.MustCompile(`\[Environment\]::SetEnvironmentVariable\s*\(\s*["'](\w+)["']`),
	},
	isComment: hashComment,
}

var batchPack = pack{
	patterns: []*regexp.Regexp{
		regexp.MustCompile(`%(\w+)%`),
		regexp.MustCompile(`(?i)^\s*set\s+(\w+)=`),
	},
	deny: denySet(
		"errorlevel", "cd", "date", "time", "random",
		"CD", "DATE", "TIME", "RANDOM", "ERRORLEVEL",
	),
	isComment: func(trimmed string) bool {
		return len(trimmed) >= 3 && trimmed[:3] == "REM" ||
			len(trimmed) >= 2 && trimmed[:2] == "::"
	},
}

var makefilePack = pack{
	patterns: []*regexp.Regexp{
		regexp.MustCompile(`\$\((\w+)\)`),
		regexp.MustCompile(`\$\{(\w+)\}`),
		regexp.MustCompile(`\$\$(\w+)`),
		regexp.MustCompile(`\$\$\{(\w+)\}`),
	},
	deny: denySet(
		"MAKE", "MAKEFLAGS", "MAKECMDGOALS", "CURDIR", "SHELL",
		"MAKEFILE_LIST", "MAKEFILES", "VPATH", "SUFFIXES",
	),
	denyPrefix: ".",
	isComment:  hashComment,
}

// packForExtension maps a lowercase file extension (without the dot) to
// its language pack, or nil when the extension is not recognized.
func packForExtension(ext string) *pack {
	switch ext {
	case "js", "jsx", "ts", "tsx", "mjs", "cjs":
		return &javascriptPack
	case "py", "pyw":
		return &pythonPack
	case "rs":
		return &rustPack
	case "go":
		return &goPack
	case "java":
		return &javaPack
	case "cs":
		return &csharpPack
	case "rb":
		return &rubyPack
	case "php":
		return &phpPack
	case "c", "h":
		return &cPack
	case "cpp", "cc", "cxx", "hpp", "hxx", "h++":
		return &cppPack
	case "sh", "bash", "zsh", "fish":
		return &shellPack
	case "ps1", "psm1":
		return &powershellPack
	case "bat", "cmd":
		return &batchPack
	default:
		return nil
	}
}
