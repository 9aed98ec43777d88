package remotetest

// UbuntuOSRelease is a trimmed /etc/os-release from Ubuntu 22.04.
const UbuntuOSRelease = `PRETTY_NAME="Ubuntu 22.04 LTS"
NAME="Ubuntu"
VERSION_ID="22.04"
VERSION="22.04 LTS (Jammy Jellyfish)"
ID=ubuntu
ID_LIKE=debian
`

// WindowsVer is the banner printed by cmd.exe's ver.
const WindowsVer = "\r\nMicrosoft Windows [Version 10.0.19045.1]\r\n"

// LinuxReplies answers the Linux fingerprint and diagnostic commands.
func LinuxReplies(hostname, osRelease string) map[string]Reply {
	uname := "Linux " + hostname + " 5.15.0-91-generic #101-Ubuntu SMP x86_64 GNU/Linux"
	return map[string]Reply{
		"cat /etc/os-release": {Stdout: osRelease},
		"uname -a":            {Stdout: uname + "\n"},
		"uname -s":            {Stdout: "Linux\n"},
		"hostname":            {Stdout: hostname + "\n"},
		"ver":                 {Stderr: "sh: 1: ver: not found\n", ExitStatus: 127},
	}
}

// WindowsReplies answers the Windows fingerprint commands and rejects the
// Linux ones the way cmd.exe does.
func WindowsReplies(hostname, ver string) map[string]Reply {
	notRecognized := func(bin string) Reply {
		return Reply{
			Stderr:     "'" + bin + "' is not recognized as an internal or external command,\r\noperable program or batch file.\r\n",
			ExitStatus: 1,
		}
	}
	return map[string]Reply{
		"cat /etc/os-release": notRecognized("cat"),
		"uname -a":            notRecognized("uname"),
		"uname -s":            notRecognized("uname"),
		"hostname":            {Stdout: hostname + "\r\n"},
		"ver":                 {Stdout: ver},
	}
}

// Merge returns a new table holding base overridden by extra.
func Merge(base map[string]Reply, extra map[string]Reply) map[string]Reply {
	out := make(map[string]Reply, len(base)+len(extra))
	for k, v := range base {
		out[k] = v
	}
	for k, v := range extra {
		out[k] = v
	}
	return out
}
