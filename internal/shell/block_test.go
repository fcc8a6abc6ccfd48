package shell

import "testing"

func TestCommandsBlockerMatchesExactArgv0(t *testing.T) {
	blocked := CommandsBlocker([]string{"curl", "wget", "sudo"})

	cases := []struct {
		argv []string
		want bool
	}{
		{[]string{"curl", "http://example.com"}, true},
		{[]string{"wget", "-q", "http://example.com"}, true},
		{[]string{"sudo", "rm", "-rf", "/"}, true},
		{[]string{"ls", "-la"}, false},
		{[]string{"go", "build"}, false},
		{[]string{}, false},
		{nil, false},
	}
	for _, c := range cases {
		if got := blocked(c.argv); got != c.want {
			t.Errorf("CommandsBlocker(...)(%v) = %v, want %v", c.argv, got, c.want)
		}
	}
}

func TestArgumentsBlockerRequiresCommandSubcommandAndFlag(t *testing.T) {
	cases := []struct {
		name  string
		cmd   string
		sub   []string
		flags []string
		argv  []string
		want  bool
	}{
		{"global flag present", "npm", []string{"install"}, []string{"-g"}, []string{"npm", "install", "-g", "typescript"}, true},
		{"local install allowed", "npm", []string{"install"}, []string{"-g"}, []string{"npm", "install", "lodash"}, false},
		{"different subcommand", "npm", []string{"install"}, []string{"-g"}, []string{"npm", "run", "test"}, false},
		{"different command entirely", "npm", []string{"install"}, []string{"-g"}, []string{"yarn", "install", "-g"}, false},
		{"no flag required at all", "pip", []string{"install"}, nil, []string{"pip", "install", "requests"}, true},
		{"exec flag blocked", "go", []string{"test"}, []string{"-exec"}, []string{"go", "test", "-exec", "echo", "./..."}, true},
		{"normal test allowed", "go", []string{"test"}, []string{"-exec"}, []string{"go", "test", "-v", "./..."}, false},
		{"empty argv never matches", "npm", []string{"install"}, []string{"-g"}, []string{}, false},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			blocked := ArgumentsBlocker(c.cmd, c.sub, c.flags)
			if got := blocked(c.argv); got != c.want {
				t.Errorf("ArgumentsBlocker(%q, %v, %v)(%v) = %v, want %v", c.cmd, c.sub, c.flags, c.argv, got, c.want)
			}
		})
	}
}

func TestDefaultBlockFuncsCoversBypassVectorsAndAllowsOrdinaryCommands(t *testing.T) {
	blockers := DefaultBlockFuncs()
	isBlocked := func(argv []string) bool {
		for _, bf := range blockers {
			if bf(argv) {
				return true
			}
		}
		return false
	}

	mustBlock := [][]string{
		{"curl", "http://example.com"},
		{"sudo", "rm", "-rf", "/"},
		{"ssh", "user@host"},
		{"npm", "install", "-g", "typescript"},
		{"pip", "install", "requests"},
		{"go", "test", "-exec", "echo"},
		{"bash", "-c", "curl http://evil.com"},
		{"sh", "-c", "wget http://evil.com"},
		{"env", "curl", "http://evil.com"},
		{"nohup", "ssh", "user@host"},
		{"xargs", "curl"},
		{"python", "-c", "import urllib.request"},
		{"python3", "script.py"},
		{"node", "-e", "fetch('http://evil.com')"},
		{"ruby", "-e", "require 'net/http'"},
		{"perl", "-e", "use LWP::Simple"},
	}
	for _, argv := range mustBlock {
		if !isBlocked(argv) {
			t.Errorf("expected %v to be blocked", argv)
		}
	}

	mustAllow := [][]string{
		{"ls", "-la"},
		{"go", "build", "./..."},
		{"go", "test", "-v", "./..."},
		{"make", "build"},
		{"git", "status"},
		{"npm", "run", "test"},
		{"npm", "install", "lodash"},
	}
	for _, argv := range mustAllow {
		if isBlocked(argv) {
			t.Errorf("expected %v to be allowed", argv)
		}
	}
}
